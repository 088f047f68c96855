// Package securestore keeps the FTP password of a project encrypted at rest
// with a passphrase (argon2id key derivation, AES-256-GCM).
package securestore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// FileName is the vault file inside the metadata directory.
const FileName = "credential.enc"

var magic = []byte("SKSEC1") // 6 bytes magic header

var (
	ErrWrongPassphrase = errors.New("invalid passphrase or corrupted data")
	ErrNoVault         = errors.New("no stored credential")
)

type kdfParams struct {
	timeCost uint32
	memoryKB uint32
	threads  uint8
	salt     []byte
	nonce    []byte
}

// randReader is the source of salts and nonces.
var randReader io.Reader = rand.Reader

// defaultKDF returns recommended parameters with a fresh salt and nonce.
var defaultKDF = func() (kdfParams, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return kdfParams{}, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, 12)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return kdfParams{}, fmt.Errorf("generate nonce: %w", err)
	}
	return kdfParams{
		timeCost: 2,
		memoryKB: 64 * 1024, // 64 MiB
		threads:  4,
		salt:     salt,
		nonce:    nonce,
	}, nil
}

func deriveKey(p kdfParams, passphrase []byte) []byte {
	return argon2.IDKey(passphrase, p.salt, p.timeCost, p.memoryKB, p.threads, 32)
}

// writeHeader writes magic, version, kdf params, salt and nonce.
func writeHeader(w io.Writer, p kdfParams) error {
	fields := []any{uint8(1), p.timeCost, p.memoryKB, p.threads, uint16(len(p.salt))}
	if _, err := w.Write(magic); err != nil {
		return err
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if _, err := w.Write(p.salt); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(p.nonce))); err != nil {
		return err
	}
	_, err := w.Write(p.nonce)
	return err
}

func readHeader(r io.Reader) (kdfParams, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return kdfParams{}, err
	}
	if !bytes.Equal(hdr[:], magic) {
		return kdfParams{}, errors.New("invalid magic header")
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return kdfParams{}, err
	}
	if version != 1 {
		return kdfParams{}, fmt.Errorf("unsupported version: %d", version)
	}

	var p kdfParams
	var saltLen uint16
	for _, f := range []any{&p.timeCost, &p.memoryKB, &p.threads, &saltLen} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return kdfParams{}, err
		}
	}
	p.salt = make([]byte, saltLen)
	if _, err := io.ReadFull(r, p.salt); err != nil {
		return kdfParams{}, err
	}
	var nonceLen uint8
	if err := binary.Read(r, binary.LittleEndian, &nonceLen); err != nil {
		return kdfParams{}, err
	}
	p.nonce = make([]byte, nonceLen)
	if _, err := io.ReadFull(r, p.nonce); err != nil {
		return kdfParams{}, err
	}
	return p, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts secret with passphrase and writes it to outPath (mode 0600).
func Seal(passphrase, secret []byte, outPath string) error {
	p, err := defaultKDF()
	if err != nil {
		return err
	}
	gcm, err := newGCM(deriveKey(p, passphrase))
	if err != nil {
		return err
	}
	sealed := gcm.Seal(nil, p.nonce, secret, magic)

	if err := os.MkdirAll(filepath.Dir(outPath), 0700); err != nil {
		return err
	}
	tmp := outPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if err := writeHeader(f, p); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Write(sealed); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, outPath)
}

// Open decrypts the vault at inPath.
func Open(passphrase []byte, inPath string) ([]byte, error) {
	f, err := os.Open(inPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoVault
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := readHeader(f)
	if err != nil {
		return nil, fmt.Errorf("read vault header: %w", err)
	}
	gcm, err := newGCM(deriveKey(p, passphrase))
	if err != nil {
		return nil, err
	}
	ct, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(p.nonce) != gcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := gcm.Open(nil, p.nonce, ct, magic)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Exists reports whether a vault file is present at path.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
