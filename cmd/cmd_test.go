package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	carol = "0x00000000000000000000000000000000000CA201"
	dave  = "0x000000000000000000000000000000000000da7e"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuildAndVerifyOffline(t *testing.T) {
	input := writeFile(t, "allocations.json", `[{"address":"`+carol+`","amount":"1.5"},{"address":"`+dave+`","amount":2}]`)
	out := filepath.Join(t.TempDir(), "doc.json")

	_, err := run(t, "--storage-driver", "memory", "build", "--input", input, "--scale", "2", "--out", out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := entities.DecodeBalanceMap(data)
	require.NoError(t, err)
	assert.Equal(t, "350", doc.TokenTotal.String())

	stdout, err := run(t, "verify", "--document", out, dave)
	require.NoError(t, err)
	var result struct {
		Valid bool   `json:"valid"`
		Index uint64 `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, uint64(1), result.Index)

	_, err = run(t, "verify", "--document", out, "0x0000000000000000000000000000000000000001")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestBuildObjectInputToStdout(t *testing.T) {
	input := writeFile(t, "allocations.json", `{"`+dave+`":"1","`+carol+`":"1"}`)
	stdout, err := run(t, "--storage-driver", "memory", "build", "-i", input, "--scale", "0")
	require.NoError(t, err)
	doc, err := entities.DecodeBalanceMap([]byte(stdout))
	require.NoError(t, err)
	entry, ok := doc.Claim(mustAddress(t, dave))
	require.True(t, ok)
	assert.Equal(t, uint64(0), entry.Index)
}

func TestBuildRejectsDuplicates(t *testing.T) {
	input := writeFile(t, "allocations.json", `[{"address":"`+dave+`","amount":1},{"address":"`+strings.ToUpper(dave[2:])+`","amount":1}]`)
	_, err := run(t, "--storage-driver", "memory", "build", "--input", input)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestPublishListClaimUnpin(t *testing.T) {
	dataDir := t.TempDir()
	base := []string{"--storage-driver", "badger", "--data-dir", dataDir}
	input := writeFile(t, "allocations.json", `[{"address":"`+carol+`","amount":"10"}]`)

	_, err := run(t, append(base, "build", "--input", input, "--publish", "--out", filepath.Join(t.TempDir(), "doc.json"))...)
	require.NoError(t, err)

	stdout, err := run(t, append(base, "pins")...)
	require.NoError(t, err)
	refs := strings.Fields(stdout)
	require.Len(t, refs, 1)

	stdout, err = run(t, append(base, "claims", carol)...)
	require.NoError(t, err)
	var found struct {
		Claims []entities.ClaimRecord `json:"claims"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &found))
	require.Len(t, found.Claims, 1)
	assert.Equal(t, refs[0], found.Claims[0].Reference)

	_, err = run(t, append(base, "claims", carol, "--ref", "not-a-cid")...)
	assert.True(t, apperror.IsKind(err, apperror.KindReference))

	_, err = run(t, append(base, "pins", "--unpin", refs[0])...)
	require.NoError(t, err)
	stdout, err = run(t, append(base, "pins")...)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(stdout))
}

func TestInvalidConfigIsRejected(t *testing.T) {
	_, err := run(t, "--storage-driver", "floppy", "pins")
	assert.Error(t, err)
}

func mustAddress(t *testing.T, s string) common.Address {
	t.Helper()
	addr, err := entities.ParseAddress(s)
	require.NoError(t, err)
	return addr
}
