package services

import (
	"context"
	"fmt"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// EncryptionService は暗号化・復号化を行うサービスのインターフェース
type EncryptionService interface {
	// Encrypt は平文を暗号化する
	Encrypt(ctx context.Context, plaintext string) (*EncryptedData, error)

	// Decrypt は暗号化されたデータを復号する
	Decrypt(ctx context.Context, encrypted *EncryptedData) (string, error)

	// Algorithm は暗号化方式の名前を返す
	Algorithm() string

	// KeyID はキーIDを返す
	KeyID() string
}

// EncryptedData は暗号化されたデータとメタデータを保持する
type EncryptedData struct {
	EncryptedValue string
	Metadata       EncryptionMetadata
}

// EncryptionMetadata は暗号化のメタデータ
type EncryptionMetadata struct {
	Algorithm   string    // "noop", "aws-kms", "aes-256-gcm"
	KeyID       string
	EncryptedAt time.Time
	Version     string
}

// SealVAPIDKeys は秘密鍵を暗号化した VAPIDKeys を返す
func SealVAPIDKeys(ctx context.Context, enc EncryptionService, publicKey, privateKey, subject string) (entities.VAPIDKeys, error) {
	sealed, err := enc.Encrypt(ctx, privateKey)
	if err != nil {
		return entities.VAPIDKeys{}, fmt.Errorf("failed to encrypt VAPID private key: %w", err)
	}
	return entities.VAPIDKeys{
		PublicKey:           publicKey,
		PrivateKey:          sealed.EncryptedValue,
		PrivateKeyAlgorithm: sealed.Metadata.Algorithm,
		PrivateKeyID:        sealed.Metadata.KeyID,
		Subject:             subject,
	}, nil
}

// OpenVAPIDPrivateKey は VAPIDKeys に格納された秘密鍵を復号する
// アルゴリズムが記録されていない鍵は平文として扱う
func OpenVAPIDPrivateKey(ctx context.Context, enc EncryptionService, keys entities.VAPIDKeys) (string, error) {
	if keys.PrivateKeyAlgorithm == "" || keys.PrivateKeyAlgorithm == "noop" {
		return keys.PrivateKey, nil
	}
	plaintext, err := enc.Decrypt(ctx, &EncryptedData{
		EncryptedValue: keys.PrivateKey,
		Metadata: EncryptionMetadata{
			Algorithm: keys.PrivateKeyAlgorithm,
			KeyID:     keys.PrivateKeyID,
			Version:   "v1",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to decrypt VAPID private key: %w", err)
	}
	return plaintext, nil
}
