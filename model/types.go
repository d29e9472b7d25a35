package model

// OutputRef mirrors a spent output pointer.
type OutputRef struct {
	TransactionID string `json:"transactionId"`
	OutputIndex   int    `json:"outputIndex"`
}

// InputReport is the per-input outcome of inspecting a signed transaction.
type InputReport struct {
	Index        int        `json:"index"`
	OwnersBefore []string   `json:"ownersBefore"`
	Fulfills     *OutputRef `json:"fulfills"`
	// Digest is the hex SHA3-256 signing digest of this input.
	Digest    string `json:"digest"`
	PublicKey string `json:"publicKey,omitempty"`
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
}

// VerifyReport is the result of checking a signed transaction.
type VerifyReport struct {
	ID         string        `json:"id"`
	ComputedID string        `json:"computedId"`
	Operation  string        `json:"operation"`
	Valid      bool          `json:"valid"`
	Inputs     []InputReport `json:"inputs"`
	Error      *CodedError   `json:"error,omitempty"`
}

// StoreResult reports where a transaction body was stored.
type StoreResult struct {
	ID  string `json:"id"`
	CID string `json:"cid"`
}

// SubmitResult reports a node's answer to a submission.
type SubmitResult struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	HTTPStatus int    `json:"httpStatus"`
	RequestID  string `json:"requestId"`
	Message    string `json:"message,omitempty"`
}

// KeyPair is a Base58 key pair as printed by keygen.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
	Condition  string `json:"condition,omitempty"`
}
