package services

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/services"
)

// AlgorithmAESGCM is the algorithm name recorded for locally sealed values
const AlgorithmAESGCM = "aes-256-gcm"

// LocalEncryptionService は AES-256-GCM を使用したローカル暗号化サービス
type LocalEncryptionService struct {
	aead           cipher.AEAD
	keyFingerprint string
}

// NewLocalEncryptionService は LocalEncryptionService を作成する
// keyPath が指定されていればファイルの生バイトを、そうでなければ base64 の keyB64 を鍵として使う
func NewLocalEncryptionService(keyPath string, keyB64 string) (*LocalEncryptionService, error) {
	var key []byte
	switch {
	case keyPath != "":
		raw, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read encryption key from file: %w", err)
		}
		key = raw
	case keyB64 != "":
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyB64))
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key: %w", err)
		}
		key = decoded
	default:
		return nil, fmt.Errorf("encryption key not found: neither a key file nor a key is configured")
	}

	// AES-256 には 32 バイト必要
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	hash := sha256.Sum256(key)
	return &LocalEncryptionService{
		aead:           aead,
		keyFingerprint: fmt.Sprintf("sha256:%x", hash[:8]),
	}, nil
}

// Encrypt は平文を AES-256-GCM で暗号化する（ノンスを先頭に付加）
func (s *LocalEncryptionService) Encrypt(ctx context.Context, plaintext string) (*services.EncryptedData, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(s.keyFingerprint))

	return &services.EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(sealed),
		Metadata: services.EncryptionMetadata{
			Algorithm:   AlgorithmAESGCM,
			KeyID:       s.keyFingerprint,
			EncryptedAt: time.Now(),
			Version:     "v1",
		},
	}, nil
}

// Decrypt は AES-256-GCM で暗号化されたデータを復号する
func (s *LocalEncryptionService) Decrypt(ctx context.Context, encrypted *services.EncryptedData) (string, error) {
	if encrypted.Metadata.KeyID != "" && encrypted.Metadata.KeyID != s.keyFingerprint {
		return "", fmt.Errorf("value was sealed with key %s, this service holds %s", encrypted.Metadata.KeyID, s.keyFingerprint)
	}

	sealed, err := base64.StdEncoding.DecodeString(encrypted.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %d bytes, expected at least %d bytes", len(sealed), nonceSize)
	}

	plaintext, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], []byte(s.keyFingerprint))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Algorithm は "aes-256-gcm" を返す
func (s *LocalEncryptionService) Algorithm() string {
	return AlgorithmAESGCM
}

// KeyID はキーのフィンガープリントを返す
func (s *LocalEncryptionService) KeyID() string {
	return s.keyFingerprint
}

var _ services.EncryptionService = (*LocalEncryptionService)(nil)
