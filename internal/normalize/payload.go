package normalize

import "encoding/json"

// Enhanced-transaction webhook payload model. Every field is optional;
// missing fields decode to zero values and never fail the batch.

// Batch is the outer webhook body: either a bare JSON array of transactions
// or an object wrapping them under "transactions".
type Batch struct {
	Transactions []Transaction `json:"transactions"`
}

// Transaction is one enhanced transaction.
type Transaction struct {
	Signature       string           `json:"signature"`
	Sig             string           `json:"sig"` // legacy field name
	Type            string           `json:"type"`
	Source          string           `json:"source"`
	Timestamp       int64            `json:"timestamp"`
	Mint            string           `json:"mint"`
	TokenMint       string           `json:"tokenMint"`
	AccountData     []AccountData    `json:"accountData"`
	Accounts        []AccountData    `json:"accounts"` // legacy field name
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	Instructions    []Instruction    `json:"instructions"`
}

// AccountData is one account touched by the transaction.
type AccountData struct {
	Account string `json:"account"`
}

// TokenTransfer is one SPL token movement.
type TokenTransfer struct {
	Mint            string `json:"mint"`
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
}

// NativeTransfer is one SOL movement in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// Instruction is a top-level instruction with its inner instructions.
type Instruction struct {
	ProgramID         string             `json:"programId"`
	Accounts          []string           `json:"accounts"`
	InnerInstructions []InnerInstruction `json:"innerInstructions"`
}

// InnerInstruction carries only the program id; inner accounts repeat the
// outer account list and are not worth merging twice.
type InnerInstruction struct {
	ProgramID string `json:"programId"`
}

// decodeBatch accepts both accepted outer layouts.
func decodeBatch(raw []byte) ([]Transaction, bool) {
	var list []Transaction
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}

	var wrapped Batch
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Transactions, true
	}

	return nil, false
}
