package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/takutakahashi/pushnotify/internal/domain/services"
)

// AlgorithmKMS is the algorithm name recorded for values sealed by AWS KMS
const AlgorithmKMS = "aws-kms"

// kmsEncryptionContext binds ciphertexts to their purpose. KMS rejects decryption under a different context.
var kmsEncryptionContext = map[string]string{"purpose": "vapid-private-key"}

// KMSClient is the subset of the KMS API the service calls
type KMSClient interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSEncryptionService は AWS KMS を使用した暗号化サービス
type KMSEncryptionService struct {
	client KMSClient
	keyID  string
}

// NewKMSEncryptionService は AWS のデフォルト設定から KMSEncryptionService を作成する
func NewKMSEncryptionService(ctx context.Context, keyID, region string) (*KMSEncryptionService, error) {
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewKMSEncryptionServiceWithClient(kms.NewFromConfig(cfg), keyID)
}

// NewKMSEncryptionServiceWithClient は任意のクライアントで KMSEncryptionService を作成する
func NewKMSEncryptionServiceWithClient(client KMSClient, keyID string) (*KMSEncryptionService, error) {
	if keyID == "" {
		return nil, fmt.Errorf("KMS key ID is required")
	}
	return &KMSEncryptionService{client: client, keyID: keyID}, nil
}

// Encrypt は平文を AWS KMS で暗号化する
func (s *KMSEncryptionService) Encrypt(ctx context.Context, plaintext string) (*services.EncryptedData, error) {
	result, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(s.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: kmsEncryptionContext,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS encryption failed: %w", err)
	}

	return &services.EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(result.CiphertextBlob),
		Metadata: services.EncryptionMetadata{
			Algorithm:   AlgorithmKMS,
			KeyID:       s.keyID,
			EncryptedAt: time.Now(),
			Version:     "v1",
		},
	}, nil
}

// Decrypt は AWS KMS で暗号化されたデータを復号する
func (s *KMSEncryptionService) Decrypt(ctx context.Context, encrypted *services.EncryptedData) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	// キー ID は暗号文に埋め込まれているため、記録済みのものを優先して渡すだけ
	keyID := encrypted.Metadata.KeyID
	if keyID == "" {
		keyID = s.keyID
	}
	result, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    ciphertext,
		KeyId:             aws.String(keyID),
		EncryptionContext: kmsEncryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("KMS decryption failed: %w", err)
	}
	return string(result.Plaintext), nil
}

// Algorithm は "aws-kms" を返す
func (s *KMSEncryptionService) Algorithm() string {
	return AlgorithmKMS
}

// KeyID は KMS キー ID を返す
func (s *KMSEncryptionService) KeyID() string {
	return s.keyID
}

var _ services.EncryptionService = (*KMSEncryptionService)(nil)
