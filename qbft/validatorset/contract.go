package validatorset

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/opalchain/qbft/common/logging"
)

// validatorContractABI covers the read surface of the validator contract
// plus its auxiliary counter.
const validatorContractABI = `[
	{"type":"function","name":"getValidators","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getNumber","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setNumber","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]}
]`

const validatorCacheSize = 64

type cacheKey struct {
	blockNumber uint64
	contract    common.Address
}

// Accessor reads the validator set via simulated contract calls at a given
// block. Results are immutable per (block, contract) and cached.
type Accessor struct {
	caller bind.ContractCaller
	abi    abi.ABI
	cache  *lru.Cache[cacheKey, []common.Address]
	logger zerolog.Logger
}

func NewAccessor(caller bind.ContractCaller, logger zerolog.Logger) (*Accessor, error) {
	parsed, err := abi.JSON(strings.NewReader(validatorContractABI))
	if err != nil {
		return nil, fmt.Errorf("parsing validator contract ABI: %w", err)
	}
	cache, err := lru.New[cacheKey, []common.Address](validatorCacheSize)
	if err != nil {
		return nil, err
	}
	return &Accessor{
		caller: caller,
		abi:    parsed,
		cache:  cache,
		logger: logger,
	}, nil
}

// GetValidators returns the validator addresses reported by the contract at
// the given block.
func (a *Accessor) GetValidators(
	ctx context.Context,
	blockNumber uint64,
	contract common.Address,
) ([]common.Address, error) {
	key := cacheKey{blockNumber: blockNumber, contract: contract}
	if validators, ok := a.cache.Get(key); ok {
		return validators, nil
	}

	out, err := a.call(ctx, blockNumber, contract, "getValidators")
	if err != nil {
		return nil, err
	}

	var validators []common.Address
	if err := a.abi.UnpackIntoInterface(&validators, "getValidators", out); err != nil {
		return nil, fmt.Errorf("decoding getValidators result: %w", err)
	}
	if len(validators) == 0 {
		return nil, fmt.Errorf("validator contract %s returned an empty set at block %d",
			contract, blockNumber)
	}

	a.logger.Debug().
		Uint64(logging.FieldBlockNumber, blockNumber).
		Stringer(logging.FieldContract, contract).
		Int(logging.FieldValidators, len(validators)).
		Msg("Validator set resolved")

	a.cache.Add(key, validators)
	return validators, nil
}

// GetNumber reads the contract's auxiliary counter at the given block.
func (a *Accessor) GetNumber(
	ctx context.Context,
	blockNumber uint64,
	contract common.Address,
) (*big.Int, error) {
	out, err := a.call(ctx, blockNumber, contract, "getNumber")
	if err != nil {
		return nil, err
	}
	var value *big.Int
	if err := a.abi.UnpackIntoInterface(&value, "getNumber", out); err != nil {
		return nil, fmt.Errorf("decoding getNumber result: %w", err)
	}
	return value, nil
}

// SetNumber simulates a setNumber call at the given block and reports
// whether it would succeed.
func (a *Accessor) SetNumber(
	ctx context.Context,
	blockNumber uint64,
	contract common.Address,
	value *big.Int,
) bool {
	_, err := a.call(ctx, blockNumber, contract, "setNumber", value)
	return err == nil
}

func (a *Accessor) call(
	ctx context.Context,
	blockNumber uint64,
	contract common.Address,
	method string,
	args ...any,
) ([]byte, error) {
	input, err := a.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s call: %w", method, err)
	}
	out, err := a.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("validator contract %s call failed: %w", method, err)
	}
	return out, nil
}
