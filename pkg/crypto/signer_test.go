package crypto

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	if signer.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}
	if got := len(signer.PrivateKeyHex()); got != 64 {
		t.Errorf("private key hex length = %d, want 64", got)
	}
	if got := len(signer.PublicKeyHex()); got != 130 {
		t.Errorf("public key hex length = %d, want 130", got)
	}
}

func TestFromPrivateKeyHex(t *testing.T) {
	signer1, _ := GenerateKey()
	privHex := signer1.PrivateKeyHex()

	for _, in := range []string{privHex, "0x" + privHex} {
		signer2, err := FromPrivateKeyHex(in)
		if err != nil {
			t.Fatalf("failed to load key %q: %v", in[:4], err)
		}
		if signer2.Address() != signer1.Address() {
			t.Errorf("address = %s, want %s", signer2.Address().Hex(), signer1.Address().Hex())
		}
	}

	if _, err := FromPrivateKeyHex("zz"); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestSignProducesWalletV(t *testing.T) {
	signer, _ := GenerateKey()
	sig, err := signer.SignMessage([]byte("minted"))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	if len(sig) != SignatureLength {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureLength)
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Errorf("v = %d, want 27 or 28", sig[64])
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, _ := GenerateKey()

	message := []byte("Hello, MintedExchange!")
	signature, err := signer.SignMessage(message)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	hash := eth_crypto.Keccak256Hash(message).Bytes()
	if !VerifySignature(signer.Address(), hash, signature) {
		t.Error("signature verification failed")
	}

	wrongAddr := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if VerifySignature(wrongAddr, hash, signature) {
		t.Error("signature verified with wrong address")
	}

	wrongHash := eth_crypto.Keccak256Hash([]byte("Wrong message")).Bytes()
	if VerifySignature(signer.Address(), wrongHash, signature) {
		t.Error("signature verified with wrong message")
	}
}

func TestRecoverAddressAcceptsBothVForms(t *testing.T) {
	signer, _ := GenerateKey()
	hash := eth_crypto.Keccak256([]byte("v forms"))
	sig, _ := signer.Sign(hash)

	raw := append([]byte(nil), sig...)
	raw[64] -= 27

	for name, s := range map[string][]byte{"27/28": sig, "0/1": raw} {
		got, err := RecoverAddress(hash, s)
		if err != nil {
			t.Fatalf("%s: recover failed: %v", name, err)
		}
		if got != signer.Address() {
			t.Errorf("%s: recovered %s, want %s", name, got.Hex(), signer.Address().Hex())
		}
	}
}

// malleate returns the high-s twin of sig: s' = N - s with the parity flipped.
func malleate(sig []byte) []byte {
	r, s, v, _ := SignatureToRSV(sig)
	s2 := new(big.Int).Sub(eth_crypto.S256().Params().N, s)
	return RSVToSignature(r, s2, 27+(1-(v-27)))
}

func TestRecoverAddressRejectsMalformed(t *testing.T) {
	signer, _ := GenerateKey()
	hash := eth_crypto.Keccak256([]byte("malformed"))
	sig, _ := signer.Sign(hash)

	badV := append([]byte(nil), sig...)
	badV[64] = 29

	tests := []struct {
		name    string
		hash    []byte
		sig     []byte
		wantErr error
	}{
		{"short signature", hash, sig[:64], ErrSignatureLength},
		{"long signature", hash, append(append([]byte(nil), sig...), 0), ErrSignatureLength},
		{"bad v", hash, badV, ErrSignatureV},
		{"high s", hash, malleate(sig), ErrSignatureS},
		{"zero r and s", hash, make([]byte, 65), ErrSignatureS},
		{"short hash", hash[:31], sig, ErrHashLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverAddress(tt.hash, tt.sig)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RecoverAddress() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignatureToRSV(t *testing.T) {
	signer, _ := GenerateKey()
	sig, _ := signer.SignMessage([]byte("rsv"))

	r, s, v, err := SignatureToRSV(sig)
	if err != nil {
		t.Fatalf("failed to split signature: %v", err)
	}

	rebuilt := RSVToSignature(r, s, v)
	if string(rebuilt) != string(sig) {
		t.Error("RSV round trip mismatch")
	}
}

func TestParseAddress(t *testing.T) {
	signer, _ := GenerateKey()
	checksummed := EIP55(signer.Address().Bytes())

	if checksummed != signer.Address().Hex() {
		t.Fatalf("EIP55 = %s, go-ethereum Hex = %s", checksummed, signer.Address().Hex())
	}

	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"checksummed", checksummed, nil},
		{"lowercase", strings.ToLower(checksummed), nil},
		{"uppercase body", "0x" + strings.ToUpper(checksummed[2:]), nil},
		{"missing prefix", checksummed[2:], ErrAddressFormat},
		{"too short", checksummed[:40], ErrAddressFormat},
		{"not hex", "0x" + strings.Repeat("g", 40), ErrAddressFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseAddress(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != signer.Address() {
				t.Errorf("ParseAddress(%q) = %s, want %s", tt.in, got.Hex(), signer.Address().Hex())
			}
		})
	}
}

func TestParseAddressRejectsBadChecksum(t *testing.T) {
	// Flip the case of the first letter in a checksummed address.
	addr := EIP55(common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed").Bytes())
	body := []byte(addr[2:])
	for i, c := range body {
		if c >= 'a' && c <= 'f' {
			body[i] = c - ('a' - 'A')
			break
		}
		if c >= 'A' && c <= 'F' {
			body[i] = c + ('a' - 'A')
			break
		}
	}

	if _, err := ParseAddress("0x" + string(body)); !errors.Is(err, ErrAddressChecksum) {
		t.Errorf("error = %v, want %v", err, ErrAddressChecksum)
	}
}

func TestDomainSeparatorDependsOnEveryField(t *testing.T) {
	exchange := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	base := DefaultDomain(1337, exchange)
	baseSep, err := base.Separator()
	if err != nil {
		t.Fatalf("separator: %v", err)
	}

	variants := map[string]EIP712Domain{
		"name":     {Name: "Other", Version: "1", ChainID: big.NewInt(1337), VerifyingContract: exchange},
		"version":  {Name: "MintedExchange", Version: "2", ChainID: big.NewInt(1337), VerifyingContract: exchange},
		"chain":    {Name: "MintedExchange", Version: "1", ChainID: big.NewInt(1), VerifyingContract: exchange},
		"contract": {Name: "MintedExchange", Version: "1", ChainID: big.NewInt(1337), VerifyingContract: common.Address{1}},
	}
	for field, d := range variants {
		sep, err := d.Separator()
		if err != nil {
			t.Fatalf("%s: %v", field, err)
		}
		if sep == baseSep {
			t.Errorf("changing %s did not change the separator", field)
		}
	}
}

func TestDomainSeparatorMatchesTypedData(t *testing.T) {
	domain := DefaultDomain(31337, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	sep, err := domain.Separator()
	if err != nil {
		t.Fatalf("separator: %v", err)
	}

	td := domain.TypedData()
	typed := typedDataForDomain(td)
	want, err := typed.HashStruct("EIP712Domain", td.Map())
	if err != nil {
		t.Fatalf("apitypes hash: %v", err)
	}
	if sep != common.BytesToHash(want) {
		t.Errorf("separator = %s, apitypes = %x", sep.Hex(), []byte(want))
	}
}

func typedDataForDomain(d apitypes.TypedDataDomain) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
		},
		PrimaryType: "EIP712Domain",
		Domain:      d,
	}
}
