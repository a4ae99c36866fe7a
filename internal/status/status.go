// Package status defines the API status code enumeration and the sentinel
// errors shared by the store and service layers. Codes are carried in the
// response envelope and are distinct from HTTP status codes.
package status

import "errors"

// Code is the numeric status carried in every response envelope.
type Code int

const (
	Success                 Code = 200
	ValidationError         Code = 1000
	WalletAPIError          Code = 3000
	AlreadyRegisteredWallet Code = 3001
	WalletNotFound          Code = 3002
	ContractAPIError        Code = 4000
	GameNotFound            Code = 4001
	InternalError           Code = 5000
)

var messages = map[Code]string{
	Success:                 "success",
	ValidationError:         "invalid request",
	WalletAPIError:          "wallet api error",
	AlreadyRegisteredWallet: "already registered wallet",
	WalletNotFound:          "wallet not found",
	ContractAPIError:        "contract api error",
	GameNotFound:            "game not found",
	InternalError:           "internal error",
}

// Message returns the canonical message for c.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "unknown"
}

// ErrNotFound distinguishes "no matching row" from infrastructure failures.
// Anything else coming out of the store layer is a wrapped persistence
// error; duplicates surface as the AlreadyRegisteredWallet result code, not
// as an error.
var ErrNotFound = errors.New("no matching record")
