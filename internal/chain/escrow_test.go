package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

const contractAddr = "0xd7cdd887b93a232de0394666e9a705385af50e16"

var (
	buyer  = common.HexToAddress("0x1667c8c38e77a79395eb05a9384bbbf37d951d34")
	seller = common.HexToAddress("0xC8CBefeC99D582351a0aeF7fA22B417484C6fd05")
)

// fakeCaller отвечает на eth_call, упаковывая заранее заданные значения по ABI.
type fakeCaller struct {
	abi     abi.ABI
	results map[string][]any
	calls   map[string][]any
}

func (f *fakeCaller) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := f.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	if f.calls == nil {
		f.calls = map[string][]any{}
	}
	f.calls[method.Name] = args
	return method.Outputs.Pack(f.results[method.Name]...)
}

func newTestClient(t *testing.T, results map[string][]any, withKey bool) (*EscrowClient, *fakeCaller) {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	require.NoError(t, err)

	cfg := config.ChainConfig{ContractAddress: contractAddr, ChainID: 97, GasLimit: 1000000}
	if withKey {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		cfg.PrivateKey = common.Bytes2Hex(crypto.FromECDSA(key))
	}

	caller := &fakeCaller{abi: parsed, results: results}
	c, err := newEscrowClient(cfg, caller, nil, nil)
	require.NoError(t, err)
	return c, caller
}

func TestGetUserProjects(t *testing.T) {
	c, caller := newTestClient(t, map[string][]any{
		methodGetUserProjects: {[]projectTuple{
			{ProjectId: big.NewInt(1), Buyer: buyer, Seller: seller, Amount: big.NewInt(1500000000000000000), Status: 2},
			{ProjectId: big.NewInt(2), Buyer: buyer, Seller: seller, Amount: big.NewInt(0), Status: 5},
		}},
	}, false)

	projects, err := c.GetUserProjects(context.Background(), buyer.Hex())
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "1", projects[0].ProjectID)
	assert.Equal(t, "1.5", projects[0].AmountEther)
	assert.Equal(t, "1500000000000000000", projects[0].AmountWei)
	assert.Equal(t, "funded", projects[0].StatusLabel)
	assert.Equal(t, seller.Hex(), projects[0].Seller)
	assert.Equal(t, "unknown", projects[1].StatusLabel)

	assert.Equal(t, buyer, caller.calls[methodGetUserProjects][0])
}

func TestGetProjectsForApprovalAndAssetInfo(t *testing.T) {
	c, _ := newTestClient(t, map[string][]any{
		methodGetProjectsForApproval: {[]*big.Int{big.NewInt(4), big.NewInt(9)}},
		methodGetAssetInfo:           {"https://example.com/asset.zip", "unzip and review"},
	}, false)

	ids, err := c.GetProjectsForApproval(context.Background(), seller.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "9"}, ids)

	info, err := c.GetAssetInfo(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/asset.zip", info.Link)
	assert.Equal(t, "unzip and review", info.Instructions)
}

func TestReads_ValidateInput(t *testing.T) {
	c, _ := newTestClient(t, nil, false)

	_, err := c.GetUserProjects(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = c.GetAssetInfo(context.Background(), "-1")
	assert.ErrorIs(t, err, ErrInvalidProjectID)
}

func TestWrites_RequireSigner(t *testing.T) {
	c, _ := newTestClient(t, nil, false)
	_, err := c.AcceptAsset(context.Background(), "1")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestWrites_SendWithGasLimitAndWait(t *testing.T) {
	c, _ := newTestClient(t, nil, true)

	var gotMethod string
	var gotOpts *bind.TransactOpts
	c.transact = func(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error) {
		_, err := c.abi.Pack(method, params...)
		require.NoError(t, err, "аргументы должны соответствовать ABI")
		gotMethod, gotOpts = method, opts
		return types.NewTx(&types.LegacyTx{Nonce: 1, Gas: opts.GasLimit, Value: opts.Value}), nil
	}
	c.waitMined = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), BlockNumber: big.NewInt(42)}, nil
	}

	res, err := c.AddFunds(context.Background(), "7", "0.25")
	require.NoError(t, err)
	assert.Equal(t, methodAddFunds, gotMethod)
	assert.Equal(t, uint64(1000000), gotOpts.GasLimit)
	assert.Equal(t, "250000000000000000", gotOpts.Value.String())
	assert.Equal(t, "Funds added successfully to Project ID: 7", res.Status)
	assert.Equal(t, uint64(42), res.BlockNumber)

	res, err = c.SubmitAsset(context.Background(), "7", "https://example.com/a", "read me")
	require.NoError(t, err)
	assert.Equal(t, "Asset submitted successfully for Project ID: 7", res.Status)
	assert.Nil(t, gotOpts.Value)

	res, err = c.AcceptAsset(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Asset accepted successfully for Project ID: 7", res.Status)

	res, err = c.RejectAsset(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Asset rejected successfully for Project ID: 7", res.Status)

	res, err = c.AcceptProject(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Invitation accepted successfully for Project ID: 7", res.Status)
}

func TestCreateProject_ReadsIDFromEvent(t *testing.T) {
	c, _ := newTestClient(t, nil, true)
	event := c.abi.Events[eventProjectCreated]

	c.transact = func(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error) {
		assert.Equal(t, methodCreateProject, method)
		assert.Equal(t, []any{buyer, seller}, params)
		return types.NewTx(&types.LegacyTx{Nonce: 2}), nil
	}
	c.waitMined = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(10),
			Logs: []*types.Log{{
				Address: c.address,
				Topics:  []common.Hash{event.ID, common.BigToHash(big.NewInt(12)), common.BytesToHash(buyer.Bytes())},
			}},
		}, nil
	}

	res, err := c.CreateProject(context.Background(), buyer.Hex(), seller.Hex())
	require.NoError(t, err)
	assert.Equal(t, "12", res.ProjectID)
	assert.Equal(t, "Project created successfully! Project ID: 12", res.Status)
}

func TestWrites_InputChecksAndFailures(t *testing.T) {
	c, _ := newTestClient(t, nil, true)
	c.transact = func(*bind.TransactOpts, string, ...any) (*types.Transaction, error) {
		return nil, errors.New("insufficient funds for gas")
	}

	_, err := c.AddFunds(context.Background(), "1", "0")
	assert.True(t, apperror.IsValidation(err))

	_, err = c.SubmitAsset(context.Background(), "1", "https://x", " ")
	assert.ErrorIs(t, err, ErrAssetRequired)

	_, err = c.AcceptAsset(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds for gas")

	c.transact = func(*bind.TransactOpts, string, ...any) (*types.Transaction, error) {
		return types.NewTx(&types.LegacyTx{}), nil
	}
	c.waitMined = func(context.Context, *types.Transaction) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusFailed}, nil
	}
	_, err = c.RejectAsset(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
}

func signedCall(t *testing.T, chainID int64, to common.Address, value *big.Int, data []byte) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := types.MustSignNewTx(key, types.LatestSignerForChainID(big.NewInt(chainID)), &types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     3,
		To:        &to,
		Value:     value,
		Gas:       1000000,
		GasFeeCap: big.NewInt(2000000000),
		GasTipCap: big.NewInt(1000000000),
		Data:      data,
	})
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return hexutil.Encode(raw)
}

func TestRelayTransaction_SendsUserSignedCall(t *testing.T) {
	c, _ := newTestClient(t, nil, false)
	data, err := c.abi.Pack(methodAddFunds, big.NewInt(7))
	require.NoError(t, err)

	var sent *types.Transaction
	c.sendTx = func(_ context.Context, tx *types.Transaction) error {
		sent = tx
		return nil
	}
	c.waitMined = func(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), BlockNumber: big.NewInt(77)}, nil
	}

	res, err := c.RelayTransaction(context.Background(), signedCall(t, 97, c.address, big.NewInt(1e15), data))
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, sent.Hash().Hex(), res.TxHash)
	assert.Equal(t, uint64(77), res.BlockNumber)
	assert.Equal(t, "Transaction confirmed: addFunds", res.Status)
	assert.Empty(t, c.Account(), "ключ сервиса не нужен для пересылки")
}

func TestRelayTransaction_Rejects(t *testing.T) {
	c, _ := newTestClient(t, nil, false)
	c.sendTx = func(context.Context, *types.Transaction) error {
		t.Fatal("транзакция не должна уйти в сеть")
		return nil
	}

	addFunds, err := c.abi.Pack(methodAddFunds, big.NewInt(1))
	require.NoError(t, err)
	acceptAsset, err := c.abi.Pack(methodAcceptAsset, big.NewInt(1))
	require.NoError(t, err)
	read, err := c.abi.Pack(methodGetAssetInfo, big.NewInt(1))
	require.NoError(t, err)

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{name: "не hex", raw: "zz", want: ErrInvalidTransaction},
		{name: "мусор вместо транзакции", raw: "0x0102", want: ErrInvalidTransaction},
		{name: "другой контракт", raw: signedCall(t, 97, seller, nil, acceptAsset), want: ErrForeignTransaction},
		{name: "другая сеть", raw: signedCall(t, 1, c.address, nil, acceptAsset), want: ErrForeignTransaction},
		{name: "метод чтения", raw: signedCall(t, 97, c.address, nil, read), want: ErrForeignTransaction},
		{name: "эфир в непринимающий метод", raw: signedCall(t, 97, c.address, big.NewInt(5), acceptAsset), want: ErrForeignTransaction},
		{name: "вызов без данных", raw: signedCall(t, 97, c.address, big.NewInt(5), nil), want: ErrForeignTransaction},
		{name: "неизвестный селектор", raw: signedCall(t, 97, c.address, nil, []byte{1, 2, 3, 4}), want: ErrForeignTransaction},
		{name: "addFunds из другой сети", raw: signedCall(t, 56, c.address, big.NewInt(5), addFunds), want: ErrForeignTransaction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.RelayTransaction(context.Background(), tc.raw)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRelayTransaction_UnsignedRejected(t *testing.T) {
	c, _ := newTestClient(t, nil, false)
	data, err := c.abi.Pack(methodAcceptProject, big.NewInt(1))
	require.NoError(t, err)

	to := c.address
	raw, err := types.NewTx(&types.DynamicFeeTx{ChainID: big.NewInt(97), To: &to, Gas: 21000, Data: data}).MarshalBinary()
	require.NoError(t, err)

	_, err = c.RelayTransaction(context.Background(), hexutil.Encode(raw))
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}
