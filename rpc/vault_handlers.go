package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/056xyz/StableCoin/crypto"
	"github.com/056xyz/StableCoin/native/oracle"
	"github.com/056xyz/StableCoin/native/vault"
)

type depositParams struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type mintParams struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

type redeemParams struct {
	User   string `json:"user"`
	To     string `json:"to,omitempty"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type burnParams struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

type depositAndMintParams struct {
	User             string `json:"user"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	DebtAmount       string `json:"debtAmount"`
}

type burnAndRedeemParams struct {
	User             string `json:"user"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	DebtAmount       string `json:"debtAmount"`
}

type liquidateParams struct {
	Liquidator  string `json:"liquidator"`
	User        string `json:"user"`
	Asset       string `json:"asset"`
	DebtToCover string `json:"debtToCover"`
}

type accountParams struct {
	Address string `json:"address"`
}

type usdValueParams struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type collateralBalanceParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type tokenAmountParams struct {
	Asset    string `json:"asset"`
	UsdValue string `json:"usdValue"`
}

type accountResult struct {
	Address              string `json:"address"`
	DebtMinted           string `json:"debtMinted"`
	CollateralValueUsd   string `json:"collateralValueUsd"`
	HealthFactor         string `json:"healthFactor"`
	HealthFactorInfinite bool   `json:"healthFactorInfinite"`
}

type healthFactorResult struct {
	Address      string `json:"address"`
	HealthFactor string `json:"healthFactor"`
}

type collateralBalanceResult struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type parametersResult struct {
	Precision            string   `json:"precision"`
	MinHealthFactor      string   `json:"minHealthFactor"`
	LiquidationThreshold string   `json:"liquidationThreshold"`
	LiquidationPrecision string   `json:"liquidationPrecision"`
	LiquidationBonus     string   `json:"liquidationBonus"`
	CollateralTokens     []string `json:"collateralTokens"`
	ModuleAddress        string   `json:"moduleAddress"`
}

type okResult struct {
	Status string `json:"status"`
}

var statusOK = okResult{Status: "ok"}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	decoder := json.NewDecoder(bytes.NewReader(req.Params[0]))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func parseAddress(field, value string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("%s required", field)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %v", field, err)
	}
	return addr, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%s required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a base-10 integer", field)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be positive", field)
	}
	return amount, nil
}

// writeEngineError maps engine failures onto JSON-RPC error envelopes.
func (s *Server) writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	var hf *vault.HealthFactorError
	switch {
	case errors.As(err, &hf):
		s.vaultMetrics.RecordHealthViolation()
		writeError(w, http.StatusConflict, id, codeServerError, err.Error(), map[string]string{"healthFactor": hf.Ratio.String()})
	case errors.Is(err, vault.ErrInvalidAmount), errors.Is(err, vault.ErrUnsupportedAsset):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, vault.ErrNotLiquidatable), errors.Is(err, vault.ErrNotImproved):
		writeError(w, http.StatusConflict, id, codeServerError, err.Error(), nil)
	case errors.Is(err, oracle.ErrStaleQuote), errors.Is(err, oracle.ErrInvalidQuote), errors.Is(err, oracle.ErrUnknownFeed):
		writeError(w, http.StatusBadGateway, id, codeServerError, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.DepositCollateral(user, asset, amount)
	s.vaultMetrics.ObserveOperation("deposit", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.MintDebt(user, amount)
	s.vaultMetrics.ObserveOperation("mint", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleRedeem(w http.ResponseWriter, req *RPCRequest) {
	var params redeemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	to := user
	if strings.TrimSpace(params.To) != "" {
		if to, err = parseAddress("to", params.To); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.RedeemCollateral(user, to, asset, amount)
	s.vaultMetrics.ObserveOperation("redeem", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleBurn(w http.ResponseWriter, req *RPCRequest) {
	var params burnParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.BurnDebt(user, amount)
	s.vaultMetrics.ObserveOperation("burn", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleDepositAndMint(w http.ResponseWriter, req *RPCRequest) {
	var params depositAndMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collateralAmount, err := parseAmount("collateralAmount", params.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtAmount, err := parseAmount("debtAmount", params.DebtAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.DepositAndMint(user, asset, collateralAmount, debtAmount)
	s.vaultMetrics.ObserveOperation("depositAndMint", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleBurnAndRedeem(w http.ResponseWriter, req *RPCRequest) {
	var params burnAndRedeemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collateralAmount, err := parseAmount("collateralAmount", params.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtAmount, err := parseAmount("debtAmount", params.DebtAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.BurnAndRedeem(user, asset, collateralAmount, debtAmount)
	s.vaultMetrics.ObserveOperation("burnAndRedeem", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleLiquidate(w http.ResponseWriter, req *RPCRequest) {
	var params liquidateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	liquidator, err := parseAddress("liquidator", params.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := parseAddress("user", params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtToCover, err := parseAmount("debtToCover", params.DebtToCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.Liquidate(liquidator, user, asset, debtToCover)
	s.vaultMetrics.ObserveOperation("liquidate", err)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.vaultMetrics.RecordLiquidation()
	writeResult(w, req.ID, statusOK)
}

type setPriceParams struct {
	Feed  string `json:"feed"`
	Price string `json:"price"`
}

// handleSetPrice posts a quote to the manual price source. Prices carry eight
// decimals, matching the feed scale.
func (s *Server) handleSetPrice(w http.ResponseWriter, req *RPCRequest) {
	if s.feeds == nil {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "manual price source not enabled", nil)
		return
	}
	var params setPriceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	feed := strings.TrimSpace(params.Feed)
	if feed == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "feed required", nil)
		return
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	s.feeds.Set(feed, price, time.Now())
	writeResult(w, req.ID, statusOK)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debt, value, err := s.engine.AccountInformation(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	ratio, err := s.engine.HealthFactor(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, accountResult{
		Address:              addr.String(),
		DebtMinted:           debt.String(),
		CollateralValueUsd:   value.String(),
		HealthFactor:         ratio.String(),
		HealthFactorInfinite: debt.Sign() == 0,
	})
}

func (s *Server) handleGetHealthFactor(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ratio, err := s.engine.HealthFactor(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, healthFactorResult{Address: addr.String(), HealthFactor: ratio.String()})
}

func (s *Server) handleGetCollateralTokens(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	assets := s.engine.CollateralAssets()
	encoded := make([]string, 0, len(assets))
	for _, asset := range assets {
		encoded = append(encoded, asset.String())
	}
	writeResult(w, req.ID, encoded)
}

func (s *Server) handleGetCollateralBalance(w http.ResponseWriter, req *RPCRequest) {
	var params collateralBalanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.engine.CollateralBalance(addr, asset)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, collateralBalanceResult{Address: addr.String(), Asset: asset.String(), Balance: balance.String()})
}

func (s *Server) handleGetUsdValue(w http.ResponseWriter, req *RPCRequest) {
	var params usdValueParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := s.engine.UsdValue(asset, amount)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: value.String()})
}

func (s *Server) handleGetTokenAmountFromUsd(w http.ResponseWriter, req *RPCRequest) {
	var params tokenAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	usd, err := parseAmount("usdValue", params.UsdValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.engine.TokenAmountFromUsd(asset, usd)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

func (s *Server) handleGetParameters(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	assets := s.engine.CollateralAssets()
	encoded := make([]string, 0, len(assets))
	for _, asset := range assets {
		encoded = append(encoded, asset.String())
	}
	writeResult(w, req.ID, parametersResult{
		Precision:            vault.Precision().String(),
		MinHealthFactor:      vault.MinHealthFactor().String(),
		LiquidationThreshold: vault.LiquidationThreshold().String(),
		LiquidationPrecision: vault.LiquidationPrecision().String(),
		LiquidationBonus:     vault.LiquidationBonus().String(),
		CollateralTokens:     encoded,
		ModuleAddress:        s.engine.ModuleAddress().String(),
	})
}
