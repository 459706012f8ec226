// Package wallet provides the cryptographic signer the execution layer uses
// to authorize orders. The on-chain CLOB contract and the EIP-712 order
// encoding it expects are out of scope here; Signer only covers the
// EOA key-management boundary: deriving an address and signing whatever
// payload the caller hands it.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer authorizes order payloads on behalf of an EOA.
type Signer interface {
	Address() string
	Sign(payload []byte) ([]byte, error)
}

// ecdsaSigner signs with a raw secp256k1 private key, the scheme Polymarket
// uses for signature_type 0 (plain EOA, no proxy or Gnosis Safe wrapper).
type ecdsaSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewSigner loads a hex-encoded private key (with or without a leading 0x)
// and derives its address.
func NewSigner(privateKeyHex string) (Signer, error) {
	hexKey := strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &ecdsaSigner{key: key, address: addr.Hex()}, nil
}

func (s *ecdsaSigner) Address() string {
	return s.address
}

// Sign hashes payload with Keccak256 and produces a 65-byte recoverable
// ECDSA signature over it. Callers are responsible for constructing
// payload according to whatever order-hash scheme the venue expects; that
// construction is the CLOB contract's concern, not this package's.
func (s *ecdsaSigner) Sign(payload []byte) ([]byte, error) {
	hash := crypto.Keccak256(payload)
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	return sig, nil
}

// NullSigner is used in dry-run mode, where no order is ever actually
// submitted on-chain and no key material needs to be loaded.
type NullSigner struct {
	FunderAddress string
}

func (n NullSigner) Address() string { return n.FunderAddress }

func (n NullSigner) Sign(payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("wallet: dry-run signer cannot sign live orders")
}
