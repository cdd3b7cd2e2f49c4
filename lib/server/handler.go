package server

import (
	"net/http"
	"strconv"

	"github.com/ftchann/uniswap-quoter/lib/executor"
	ppool "github.com/ftchann/uniswap-quoter/lib/pool"
	"github.com/ftchann/uniswap-quoter/lib/prices"
	"github.com/ftchann/uniswap-quoter/lib/result"
	"github.com/ftchann/uniswap-quoter/lib/snapshot"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

// QuoteBody is the body of POST /v1/quote. Without a pool the server's
// default snapshot is used.
type QuoteBody struct {
	Pool  *snapshot.Snapshot    `json:"pool,omitempty"`
	Quote snapshot.QuoteRequest `json:"quote"`
}

type TickInfo struct {
	Tick         int    `json:"tick"`
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Price        string `json:"price"`
}

type PoolInfo struct {
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Fee          int    `json:"fee"`
	TickSpacing  int    `json:"tickSpacing"`
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Tick         int    `json:"tick"`
	Liquidity    string `json:"liquidity"`
	Price        string `json:"price"`
}

func (s *Server) setRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/quote", s.postQuote)
	v1.GET("/pool", s.getPool)
	v1.GET("/tick/:tick", s.getTick)
	v1.GET("/sqrt-price/:sqrtPriceX96", s.getSqrtPrice)
}

func (s *Server) postQuote(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		BadRequest(c, "read body: "+err.Error())
		return
	}
	var body QuoteBody
	if err := sonic.Unmarshal(raw, &body); err != nil {
		BadRequest(c, "invalid body: "+err.Error())
		return
	}

	pool, tokens := s.pool, s.tokens
	if body.Pool != nil {
		if pool, err = body.Pool.Pool(); err != nil {
			Failure(c, err, nil)
			return
		}
		tokens = result.Tokens{Decimals0: body.Pool.Decimals0, Decimals1: body.Pool.Decimals1}
	}
	if pool == nil {
		BadRequest(c, "no pool in the request and no default snapshot")
		return
	}

	exec := executor.CreateExecution(pool, tokens, s.logger, executor.WithMetrics(s.metrics))
	q := exec.Quote(body.Quote)
	if q.Error != "" {
		c.JSON(StatusForKind(q.ErrorKind), Response{Success: false, Data: q, Error: q.Error})
		return
	}
	Success(c, q)
}

func (s *Server) getPool(c *gin.Context) {
	if s.pool == nil {
		NotFound(c, "no default snapshot")
		return
	}
	Success(c, poolInfo(s.pool, s.tokens))
}

func poolInfo(p *ppool.Pool, tokens result.Tokens) PoolInfo {
	return PoolInfo{
		Token0:       p.Token0.Hex(),
		Token1:       p.Token1.Hex(),
		Fee:          p.Fee,
		TickSpacing:  p.TickSpacing,
		SqrtPriceX96: p.SqrtRatioX96.Dec(),
		Tick:         p.TickCurrent,
		Liquidity:    p.Liquidity.Dec(),
		Price:        prices.SqrtPriceToPrice(p.SqrtRatioX96, tokens.Decimals0, tokens.Decimals1).String(),
	}
}

func decimalsQuery(c *gin.Context) (int32, int32, bool) {
	d0, err0 := strconv.ParseInt(c.DefaultQuery("decimals0", "0"), 10, 32)
	d1, err1 := strconv.ParseInt(c.DefaultQuery("decimals1", "0"), 10, 32)
	if err0 != nil || err1 != nil {
		BadRequest(c, "invalid decimals")
		return 0, 0, false
	}
	return int32(d0), int32(d1), true
}

func (s *Server) getTick(c *gin.Context) {
	tick, err := strconv.Atoi(c.Param("tick"))
	if err != nil {
		BadRequest(c, "invalid tick")
		return
	}
	d0, d1, ok := decimalsQuery(c)
	if !ok {
		return
	}
	sqrtPriceX96, err := tickmath.GetSqrtRatioAtTick(tick)
	if err != nil {
		Failure(c, err, nil)
		return
	}
	Success(c, TickInfo{
		Tick:         tick,
		SqrtPriceX96: sqrtPriceX96.Dec(),
		Price:        prices.SqrtPriceToPrice(sqrtPriceX96, d0, d1).String(),
	})
}

func (s *Server) getSqrtPrice(c *gin.Context) {
	sqrtPriceX96, err := snapshot.ParseUnsigned(c.Param("sqrtPriceX96"))
	if err != nil {
		Failure(c, err, nil)
		return
	}
	d0, d1, ok := decimalsQuery(c)
	if !ok {
		return
	}
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		Failure(c, err, nil)
		return
	}
	Success(c, TickInfo{
		Tick:         tick,
		SqrtPriceX96: sqrtPriceX96.Dec(),
		Price:        prices.SqrtPriceToPrice(sqrtPriceX96, d0, d1).String(),
	})
}
