package models

// ChainProject описывает проект в escrow контракте.
type ChainProject struct {
	ProjectID   string `json:"project_id"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	AmountWei   string `json:"amount_wei"`
	AmountEther string `json:"amount_ether"`
	Status      uint8  `json:"status"`
	StatusLabel string `json:"status_label"`
}

// AssetInfo содержит данные сданного актива.
type AssetInfo struct {
	Link         string `json:"link"`
	Instructions string `json:"instructions"`
}

// ChainTxResult возвращается после подтверждения транзакции.
type ChainTxResult struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Status      string `json:"status"`
	// ProjectID заполняется для createProject, если контракт сообщил его в событии.
	ProjectID string `json:"project_id,omitempty"`
}
