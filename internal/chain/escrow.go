// Package chain вызывает escrow контракт в EVM сети.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

var (
	ErrReadOnly         = apperror.New(apperror.ErrCodeForbidden, "ключ подписи транзакций не настроен")
	ErrInvalidAddress   = apperror.New(apperror.ErrCodeValidation, "некорректный адрес")
	ErrInvalidProjectID = apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор проекта")
	ErrAssetRequired    = apperror.New(apperror.ErrCodeValidation, "Please enter both asset link and instructions.")

	ErrInvalidTransaction = apperror.New(apperror.ErrCodeValidation, "некорректная подписанная транзакция")
	ErrForeignTransaction = apperror.New(apperror.ErrCodeValidation, "транзакция не вызывает метод записи escrow контракта")
)

// writeMethods - методы контракта, которые можно передать через RelayTransaction.
var writeMethods = map[string]struct{}{
	methodCreateProject: {},
	methodAcceptProject: {},
	methodAddFunds:      {},
	methodSubmitAsset:   {},
	methodAcceptAsset:   {},
	methodRejectAsset:   {},
}

// projectTuple повторяет структуру, которую возвращает getUserProjects.
type projectTuple struct {
	ProjectId *big.Int
	Buyer     common.Address
	Seller    common.Address
	Amount    *big.Int
	Status    uint8
}

// EscrowClient читает состояние контракта, передаёт в сеть транзакции, подписанные
// кошельками пользователей, и отправляет операторские транзакции от ключа сервиса.
type EscrowClient struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	chainID  *big.Int
	gasLimit uint64

	transact  func(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error)
	sendTx    func(ctx context.Context, tx *types.Transaction) error
	waitMined func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	close     func()
}

// Dial подключается к RPC узлу из конфигурации.
func Dial(ctx context.Context, cfg config.ChainConfig) (*EscrowClient, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: не удалось подключиться к %s: %w", cfg.RPCURL, err)
	}

	c, err := newEscrowClient(cfg, client, client, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	c.close = client.Close
	return c, nil
}

func newEscrowClient(cfg config.ChainConfig, caller bind.ContractCaller, transactor bind.ContractTransactor, deploy bind.DeployBackend) (*EscrowClient, error) {
	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("chain: разбор ABI: %w", err)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("chain: некорректный адрес контракта %q", cfg.ContractAddress)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(address, parsed, caller, transactor, nil)

	c := &EscrowClient{
		abi:       parsed,
		address:   address,
		contract:  contract,
		chainID:   big.NewInt(cfg.ChainID),
		gasLimit:  cfg.GasLimit,
		transact:  contract.Transact,
		sendTx:    func(ctx context.Context, tx *types.Transaction) error {
			return transactor.SendTransaction(ctx, tx)
		},
		waitMined: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			return bind.WaitMined(ctx, deploy, tx)
		},
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("chain: некорректный приватный ключ: %w", err)
		}
		if err := c.setSigner(key, c.chainID); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *EscrowClient) setSigner(key *ecdsa.PrivateKey, chainID *big.Int) error {
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return fmt.Errorf("chain: signer: %w", err)
	}
	c.auth = auth
	return nil
}

// Close закрывает соединение с узлом.
func (c *EscrowClient) Close() {
	if c.close != nil {
		c.close()
	}
}

// Account возвращает адрес, от имени которого подписываются транзакции.
func (c *EscrowClient) Account() string {
	if c.auth == nil {
		return ""
	}
	return c.auth.From.Hex()
}

// GetUserProjects возвращает проекты, в которых адрес участвует как покупатель или продавец.
func (c *EscrowClient) GetUserProjects(ctx context.Context, address string) ([]models.ChainProject, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetUserProjects, addr); err != nil {
		return nil, upstream(err, "Failed to fetch user projects. Please try again.")
	}

	tuples := *abi.ConvertType(out[0], new([]projectTuple)).(*[]projectTuple)
	projects := make([]models.ChainProject, 0, len(tuples))
	for _, t := range tuples {
		projects = append(projects, models.ChainProject{
			ProjectID:   t.ProjectId.String(),
			Buyer:       t.Buyer.Hex(),
			Seller:      t.Seller.Hex(),
			AmountWei:   t.Amount.String(),
			AmountEther: FormatEther(t.Amount),
			Status:      t.Status,
			StatusLabel: StatusLabel(t.Status),
		})
	}
	return projects, nil
}

// GetProjectsForApproval возвращает проекты, ожидающие подтверждения адресом.
func (c *EscrowClient) GetProjectsForApproval(ctx context.Context, address string) ([]string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetProjectsForApproval, addr); err != nil {
		return nil, upstream(err, "Failed to fetch invitations. Please try again.")
	}

	ids := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.String())
	}
	return result, nil
}

// GetAssetInfo возвращает ссылку и инструкции сданного актива.
func (c *EscrowClient) GetAssetInfo(ctx context.Context, projectID string) (*models.AssetInfo, error) {
	id, err := parseProjectID(projectID)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetAssetInfo, id); err != nil {
		return nil, upstream(err, "Error fetching asset info")
	}

	return &models.AssetInfo{
		Link:         *abi.ConvertType(out[0], new(string)).(*string),
		Instructions: *abi.ConvertType(out[1], new(string)).(*string),
	}, nil
}

// CreateProject создаёт проект в контракте для пары покупатель/продавец.
func (c *EscrowClient) CreateProject(ctx context.Context, buyer, seller string) (*models.ChainTxResult, error) {
	buyerAddr, err := parseAddress(buyer)
	if err != nil {
		return nil, err
	}
	sellerAddr, err := parseAddress(seller)
	if err != nil {
		return nil, err
	}

	receipt, err := c.send(ctx, nil, methodCreateProject, buyerAddr, sellerAddr)
	if err != nil {
		return nil, err
	}

	res := txResult(receipt, "Project created successfully!")
	if id := c.createdProjectID(receipt); id != nil {
		res.ProjectID = id.String()
		res.Status = "Project created successfully! Project ID: " + res.ProjectID
	}
	return res, nil
}

// AcceptProject принимает приглашение в проект.
func (c *EscrowClient) AcceptProject(ctx context.Context, projectID string) (*models.ChainTxResult, error) {
	return c.projectCall(ctx, methodAcceptProject, projectID, "Invitation accepted successfully for Project ID: ")
}

// AddFunds вносит amountEther эфиров на счёт проекта.
func (c *EscrowClient) AddFunds(ctx context.Context, projectID, amountEther string) (*models.ChainTxResult, error) {
	id, err := parseProjectID(projectID)
	if err != nil {
		return nil, err
	}
	wei, err := ParseEther(amountEther)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "Please enter a valid amount.")
	}

	receipt, err := c.send(ctx, wei, methodAddFunds, id)
	if err != nil {
		return nil, err
	}
	return txResult(receipt, "Funds added successfully to Project ID: "+id.String()), nil
}

// SubmitAsset сдаёт актив по проекту. Ссылка и инструкции обязательны.
func (c *EscrowClient) SubmitAsset(ctx context.Context, projectID, link, instructions string) (*models.ChainTxResult, error) {
	id, err := parseProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(link) == "" || strings.TrimSpace(instructions) == "" {
		return nil, ErrAssetRequired
	}

	receipt, err := c.send(ctx, nil, methodSubmitAsset, id, link, instructions)
	if err != nil {
		return nil, err
	}
	return txResult(receipt, "Asset submitted successfully for Project ID: "+id.String()), nil
}

// AcceptAsset принимает сданный актив.
func (c *EscrowClient) AcceptAsset(ctx context.Context, projectID string) (*models.ChainTxResult, error) {
	return c.projectCall(ctx, methodAcceptAsset, projectID, "Asset accepted successfully for Project ID: ")
}

// RejectAsset отклоняет сданный актив.
func (c *EscrowClient) RejectAsset(ctx context.Context, projectID string) (*models.ChainTxResult, error) {
	return c.projectCall(ctx, methodRejectAsset, projectID, "Asset rejected successfully for Project ID: ")
}

func (c *EscrowClient) projectCall(ctx context.Context, method, projectID, okPrefix string) (*models.ChainTxResult, error) {
	id, err := parseProjectID(projectID)
	if err != nil {
		return nil, err
	}
	receipt, err := c.send(ctx, nil, method, id)
	if err != nil {
		return nil, err
	}
	return txResult(receipt, okPrefix+id.String()), nil
}

// RelayTransaction передаёт в сеть транзакцию, подписанную кошельком пользователя,
// и ждёт одно подтверждение. Принимаются только вызовы методов записи этого контракта
// в настроенной сети. Права отправителя проверяет сам контракт по msg.sender.
func (c *EscrowClient) RelayTransaction(ctx context.Context, rawTx string) (*models.ChainTxResult, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(rawTx))
	if err != nil {
		return nil, ErrInvalidTransaction
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, ErrInvalidTransaction
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, ErrInvalidTransaction
	}

	if tx.To() == nil || *tx.To() != c.address || len(tx.Data()) < 4 {
		return nil, ErrForeignTransaction
	}
	if tx.ChainId().Sign() != 0 && tx.ChainId().Cmp(c.chainID) != 0 {
		return nil, ErrForeignTransaction
	}
	method, err := c.abi.MethodById(tx.Data()[:4])
	if err != nil {
		return nil, ErrForeignTransaction
	}
	if _, ok := writeMethods[method.Name]; !ok {
		return nil, ErrForeignTransaction
	}
	if tx.Value().Sign() > 0 && !method.IsPayable() {
		return nil, ErrForeignTransaction
	}

	logger.Get().WithFields(logrus.Fields{
		"method": method.Name,
		"from":   from.Hex(),
		"tx":     tx.Hash().Hex(),
	}).Info("chain: передаём подписанную транзакцию")

	if err := c.sendTx(ctx, tx); err != nil {
		metrics.ChainTransactionsTotal.WithLabelValues(method.Name, "send_error").Inc()
		return nil, upstream(err, "Error: "+err.Error())
	}

	receipt, err := c.confirm(ctx, method.Name, tx)
	if err != nil {
		return nil, err
	}

	res := txResult(receipt, "Transaction confirmed: "+method.Name)
	if method.Name == methodCreateProject {
		if id := c.createdProjectID(receipt); id != nil {
			res.ProjectID = id.String()
		}
	}
	return res, nil
}

// send подписывает ключом сервиса и отправляет транзакцию с фиксированным лимитом газа.
func (c *EscrowClient) send(ctx context.Context, value *big.Int, method string, params ...any) (*types.Receipt, error) {
	if c.auth == nil {
		return nil, ErrReadOnly
	}

	opts := *c.auth
	opts.Context = ctx
	opts.GasLimit = c.gasLimit
	opts.Value = value

	tx, err := c.transact(&opts, method, params...)
	if err != nil {
		metrics.ChainTransactionsTotal.WithLabelValues(method, "send_error").Inc()
		logger.Get().WithFields(logrus.Fields{
			"method":   method,
			"contract": c.address.Hex(),
			"error":    err.Error(),
		}).Error("chain: не удалось отправить транзакцию")
		return nil, upstream(err, "Error: "+err.Error())
	}
	return c.confirm(ctx, method, tx)
}

// confirm ждёт одно подтверждение транзакции. Ожидание ограничено только ctx.
func (c *EscrowClient) confirm(ctx context.Context, method string, tx *types.Transaction) (*types.Receipt, error) {
	log := logger.Get().WithFields(logrus.Fields{"method": method, "contract": c.address.Hex(), "tx": tx.Hash().Hex()})
	log.Info("chain: транзакция отправлена, ждём подтверждения")

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		metrics.ChainTransactionsTotal.WithLabelValues(method, "wait_error").Inc()
		return nil, upstream(err, "Error: "+err.Error())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.ChainTransactionsTotal.WithLabelValues(method, "reverted").Inc()
		return nil, apperror.New(apperror.ErrCodeUpstream, "Error: transaction reverted "+tx.Hash().Hex())
	}

	metrics.ChainTransactionsTotal.WithLabelValues(method, "ok").Inc()
	return receipt, nil
}

func (c *EscrowClient) createdProjectID(receipt *types.Receipt) *big.Int {
	event, ok := c.abi.Events[eventProjectCreated]
	if !ok {
		return nil
	}
	for _, l := range receipt.Logs {
		if l == nil || l.Address != c.address || len(l.Topics) < 2 || l.Topics[0] != event.ID {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[1].Bytes())
	}
	return nil
}

// StatusLabel переводит код статуса проекта контракта в строку.
func StatusLabel(status uint8) string {
	switch status {
	case 0:
		return "pending"
	case 1:
		return "awaiting_funds"
	case 2:
		return "funded"
	case 3:
		return "asset_submitted"
	case 7:
		return "completed"
	default:
		return "unknown"
	}
}

func txResult(receipt *types.Receipt, status string) *models.ChainTxResult {
	res := &models.ChainTxResult{TxHash: receipt.TxHash.Hex(), Status: status}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(s), nil
}

func parseProjectID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || id.Sign() < 0 {
		return nil, ErrInvalidProjectID
	}
	return id, nil
}

func upstream(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeUpstream, msg)
}
