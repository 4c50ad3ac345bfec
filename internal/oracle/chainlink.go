package oracle

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const aggregatorV3ABIJSON = `[{"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}]`

var aggregatorV3ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABIJSON))
	if err != nil {
		panic("failed to parse aggregator v3 ABI: " + err.Error())
	}
	aggregatorV3ABI = parsed
}

// ChainlinkOptions parameterise the on-chain oracle source.
type ChainlinkOptions struct {
	RPCURL      string
	FeedAddress string
	Decimals    int32
	Timeout     time.Duration
}

// Chainlink reads latestRoundData from an aggregator contract over EVM RPC.
type Chainlink struct {
	opts      ChainlinkOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewChainlink builds the on-chain oracle source.
func NewChainlink(opts ChainlinkOptions, logger zerolog.Logger) *Chainlink {
	if opts.Decimals <= 0 {
		opts.Decimals = 8
	}
	return &Chainlink{opts: opts, logger: logger.With().Str("component", "chainlink_source").Logger()}
}

// Name identifies this source in quotes and logs.
func (c *Chainlink) Name() string { return "chainlink" }

// TryFetch reads the latest round answer from the feed contract.
func (c *Chainlink) TryFetch(ctx context.Context) (decimal.Decimal, error) {
	if c.opts.RPCURL == "" {
		return decimal.Decimal{}, errors.New("chainlink rpc url not configured")
	}
	if c.opts.FeedAddress == "" {
		return decimal.Decimal{}, errors.New("chainlink feed address not configured")
	}

	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	addr := common.HexToAddress(c.opts.FeedAddress)
	payload, err := aggregatorV3ABI.Pack("latestRoundData")
	if err != nil {
		return decimal.Decimal{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	outputs, err := aggregatorV3ABI.Unpack("latestRoundData", res)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(outputs) != 5 {
		return decimal.Decimal{}, errors.New("unexpected latestRoundData response")
	}

	answer, ok := outputs[1].(*big.Int)
	if !ok {
		return decimal.Decimal{}, errors.New("failed to decode round answer")
	}

	return decimal.NewFromBigInt(answer, -c.opts.Decimals), nil
}

func (c *Chainlink) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

var _ Source = (*Chainlink)(nil)
