package model

// View rows produced by the join queries. Pointer fields are NULL-able join
// results: a missing game-name or wallet row keeps the outer row and leaves
// the field nil.

// JoinedGameName pairs a provider address with a localized game title.
type JoinedGameName struct {
	Address   string  `json:"address"`
	GameIndex int     `json:"gameIndex"`
	GameName  *string `json:"gameName"`
}

// GameSummary is one game attached to a wallet in the overview.
type GameSummary struct {
	GameIndex    int     `json:"gameIndex"`
	GameName     *string `json:"gameName"`
	AppID        string  `json:"appId"`
	NFTContract  *string `json:"nftContract"`
	LockContract *string `json:"lockContract"`
}

// WalletOverviewRow is one SINGLE wallet with its attached multi-sig address
// and per-game contract state.
type WalletOverviewRow struct {
	Company       int           `json:"company"`
	SingleAddress string        `json:"singleAddress"`
	MultiAddress  *string       `json:"multiAddress"`
	GameList      []GameSummary `json:"gameList"`
}

// ContractOverviewRow is one fully-deployed ledger row joined to its
// multi-sig wallet. Issue dates are filled in from the external contract
// list during the merge step, not from the store.
type ContractOverviewRow struct {
	Company       int     `json:"company"`
	GameIndex     int     `json:"gameIndex"`
	AppID         string  `json:"appId"`
	GameName      *string `json:"gameName"`
	MultiAddress  *string `json:"multiAddress"`
	NFTContract   *string `json:"nftContract"`
	LockContract  *string `json:"lockContract"`
	NFTIssueDate  string  `json:"nftIssueDate,omitempty"`
	LockIssueDate string  `json:"lockIssueDate,omitempty"`
}

// GameInfo is the deploy-time lookup for one game: ledger state plus the
// provider's SINGLE wallet address when one is registered.
type GameInfo struct {
	AppID           string  `json:"appId"`
	GameName        *string `json:"gameName"`
	NFTContract     *string `json:"nftContract"`
	LockContract    *string `json:"lockContract"`
	ProviderAddress string  `json:"providerAddress"`
	SingleAddress   *string `json:"singleAddress"`
}
