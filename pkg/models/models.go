package models

// Transfer describes a single intended value movement to a destination
// address. Zero-value transfers may carry a message. Inputs funding the
// transfer are gathered separately and never expressed as a Transfer.
type Transfer struct {
	Address string `json:"address"`
	Value   int64  `json:"value"`
	Message string `json:"message,omitempty"`
	Tag     string `json:"tag,omitempty"`
}

// Input is a funded address under the caller's seed that can be spent.
// KeyIndex and Security pin down the exact one-time key that controls it.
type Input struct {
	Address  string `json:"address"`
	Balance  uint64 `json:"balance"`
	KeyIndex uint64 `json:"key_index"`
	Security int    `json:"security"`
}

// NodeInfo is a read-only snapshot of the connected node's state.
type NodeInfo struct {
	AppName                            string `json:"appName"`
	AppVersion                         string `json:"appVersion"`
	LatestMilestone                    string `json:"latestMilestone"`
	LatestMilestoneIndex               uint32 `json:"latestMilestoneIndex"`
	LatestSolidSubtangleMilestone      string `json:"latestSolidSubtangleMilestone"`
	LatestSolidSubtangleMilestoneIndex uint32 `json:"latestSolidSubtangleMilestoneIndex"`
	Time                               int64  `json:"time"`
}

// Receipt is the result of a successful bundle submission.
type Receipt struct {
	BundleHash          string   `json:"bundle_hash"`
	TailTransactionHash string   `json:"tail_transaction_hash"`
	Transactions        []string `json:"transactions"`
}

// BalanceEvent is emitted by the monitor when a watched address changes
// balance between two polls.
type BalanceEvent struct {
	Address        string `json:"address"`
	Previous       uint64 `json:"previous"`
	Current        uint64 `json:"current"`
	MilestoneIndex uint32 `json:"milestone_index"`
}
