package rest

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/mlayerprotocol/go-airdrop/pkg/client"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
	"github.com/mlayerprotocol/go-airdrop/pkg/metrics"
	"github.com/sirupsen/logrus"
)

var logger = &log.Logger

const (
	RequestIDHeader = "X-Request-ID"
	APIKeyHeader    = "X-API-Key"
)

type RestService struct {
	Ctx     context.Context
	Cfg     *configs.MainConfiguration
	Service *service.Service
}

func NewRestService(mainCtx context.Context, svc *service.Service) *RestService {
	cfg, ok := configs.FromContext(mainCtx)
	if !ok {
		cfg = svc.Config
	}
	return &RestService{
		Ctx:     mainCtx,
		Cfg:     cfg,
		Service: svc,
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-API-Key, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, HEAD, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware tags every request with an id, reusing the caller's when
// it sends one, and logs the request once it completes.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Debug("rest: request")
	}
}

// APIKeyMiddleware rejects requests without one of keys. An empty key list
// leaves the route open.
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}
		given := c.GetHeader(APIKeyHeader)
		for _, k := range keys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(given)) == 1 {
				c.Next()
				return
			}
		}
		respondError(c, apperror.Unauthorized("missing or invalid API key"))
		c.Abort()
	}
}

// perAllocationBytes generously covers one {"address","amount"} entry on the wire.
const perAllocationBytes = 512

// BodyLimitMiddleware caps the request body so it cannot be read past limit
// before the batch size is validated.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.Validationf("request body exceeds %d bytes", tooLarge.Limit)
	}
	return apperror.Validation(err.Error())
}

func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	msg := err.Error()
	if apperror.IsKind(err, apperror.KindIntegrity) {
		// never leak details of an unsound build
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("rest: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, entities.NewClientResponse(entities.ClientResponse{Error: msg, Kind: string(apperror.KindOf(err))}))
}

func (p *RestService) process(c *gin.Context, request client.RequestType, params map[string]string, payload interface{}, processor *client.ClientRequestHandler) {
	data, err := processor.Process(c.Request.Context(), request, params, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entities.NewClientResponse(entities.ClientResponse{Data: data}))
}

func (p *RestService) Initialize() *gin.Engine {
	if p.Cfg.LogLevel == "info" || p.Cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), CORSMiddleware())
	requestProcessor := client.NewClientRequestHandler(p.Ctx, p.Service)

	// ping the api
	router.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, entities.NewClientResponse(entities.ClientResponse{}))
	})

	router.GET("/api/info", func(c *gin.Context) {
		p.process(c, client.GetNodeInfoRequest, nil, nil, requestProcessor)
	})

	publishLimit := int64(p.Cfg.MaxBatchSize)*perAllocationBytes + 64<<10
	router.POST("/api/balance-maps", APIKeyMiddleware(p.Cfg.APIKeys), BodyLimitMiddleware(publishLimit), func(c *gin.Context) {
		var payload client.PublishBalanceMapPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, bindError(err))
			return
		}
		p.process(c, client.PublishBalanceMapRequest, nil, payload, requestProcessor)
	})

	router.GET("/api/balance-maps/:ref", func(c *gin.Context) {
		p.process(c, client.RequestType("READ:balance-maps/"+c.Param("ref")), nil, nil, requestProcessor)
	})

	router.GET("/api/claims/:address", func(c *gin.Context) {
		params := map[string]string{"ref": c.Query("ref")}
		p.process(c, client.RequestType("READ:claims/"+c.Param("address")), params, nil, requestProcessor)
	})

	router.POST("/api/verify", BodyLimitMiddleware(64<<10), func(c *gin.Context) {
		var payload client.VerifyClaimPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, apperror.BadRequest(bindError(err).Error()))
			return
		}
		p.process(c, client.VerifyClaimRequest, nil, payload, requestProcessor)
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	return router
}

// Serve runs the API until ctx is cancelled, then drains in-flight requests.
func (p *RestService) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              p.Cfg.RestAddress,
		Handler:           p.Initialize(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("rest: listening on %s", p.Cfg.RestAddress)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
