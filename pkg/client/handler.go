package client

import (
	"context"
	"fmt"

	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/common/utils"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
)

var logger = &log.Logger

type RequestType string

const (
	PingRequest              RequestType = "READ:ping"
	GetNodeInfoRequest       RequestType = "READ:info"
	PublishBalanceMapRequest RequestType = "WRITE:balance-maps"
	GetBalanceMapRequest     RequestType = "READ:balance-maps/:ref"
	FindClaimsRequest        RequestType = "READ:claims/:address"
	VerifyClaimRequest       RequestType = "READ:verify"
)

var requestPatterns = []RequestType{
	PingRequest,
	GetNodeInfoRequest,
	PublishBalanceMapRequest,
	GetBalanceMapRequest,
	FindClaimsRequest,
	VerifyClaimRequest,
}

type ClientRequestHandler struct {
	Ctx     context.Context
	Cfg     *configs.MainConfiguration
	Service *service.Service
}

var (
	ErrorInvalidRequest error = apperror.BadRequest("invalid request type")
)

func NewClientRequestHandler(mainCtx context.Context, svc *service.Service) *ClientRequestHandler {
	cfg, _ := configs.FromContext(mainCtx)
	if cfg == nil {
		cfg = svc.Config
	}
	return &ClientRequestHandler{
		Ctx:     mainCtx,
		Cfg:     cfg,
		Service: svc,
	}
}

func payloadAs[M any](payload interface{}) (M, error) {
	switch v := payload.(type) {
	case M:
		return v, nil
	case *M:
		if v != nil {
			return *v, nil
		}
	}
	var zero M
	return zero, apperror.BadRequest(fmt.Sprintf("expected %T payload, got %T", zero, payload))
}

// Process resolves requestPath against the known request patterns and runs the
// matching operation. ctx bounds the operation; params carries query values and
// receives the path parameters.
func (p *ClientRequestHandler) Process(ctx context.Context, requestPath RequestType, params map[string]string, payload interface{}) (interface{}, error) {
	var request RequestType
	if params == nil {
		params = map[string]string{}
	}
	for _, pattern := range requestPatterns {
		match, par := utils.MatchUrlPath(string(pattern), string(requestPath))
		if match {
			request = pattern
			for k, v := range par {
				params[k] = v
			}
			break
		}
	}

	switch request {
	case PingRequest:
		return nil, nil
	case GetNodeInfoRequest:
		return Info(p.Cfg), nil
	case PublishBalanceMapRequest:
		body, err := payloadAs[PublishBalanceMapPayload](payload)
		if err != nil {
			return nil, err
		}
		return PublishBalanceMap(ctx, p.Service, body)
	case GetBalanceMapRequest:
		return GetBalanceMap(ctx, p.Service, params["ref"])
	case FindClaimsRequest:
		return FindClaims(ctx, p.Service, params["address"], params["ref"])
	case VerifyClaimRequest:
		body, err := payloadAs[VerifyClaimPayload](payload)
		if err != nil {
			return nil, err
		}
		return VerifyClaim(body)
	default:
		logger.Debugf("client: no handler for %s", requestPath)
		return nil, ErrorInvalidRequest
	}
}
