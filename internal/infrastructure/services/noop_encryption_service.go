package services

import (
	"context"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/services"
)

// AlgorithmNoop marks values stored in plaintext
const AlgorithmNoop = "noop"

// NoopEncryptionService は暗号化を行わない実装
// 開発環境や鍵が設定されていない場合のフォールバックとして使用する
type NoopEncryptionService struct{}

// NewNoopEncryptionService は NoopEncryptionService を作成する
func NewNoopEncryptionService() *NoopEncryptionService {
	return &NoopEncryptionService{}
}

// Encrypt は平文をそのまま返す
func (s *NoopEncryptionService) Encrypt(ctx context.Context, plaintext string) (*services.EncryptedData, error) {
	return &services.EncryptedData{
		EncryptedValue: plaintext,
		Metadata: services.EncryptionMetadata{
			Algorithm:   AlgorithmNoop,
			KeyID:       AlgorithmNoop,
			EncryptedAt: time.Now(),
			Version:     "v1",
		},
	}, nil
}

// Decrypt は格納された値をそのまま返す
func (s *NoopEncryptionService) Decrypt(ctx context.Context, encrypted *services.EncryptedData) (string, error) {
	return encrypted.EncryptedValue, nil
}

// Algorithm は "noop" を返す
func (s *NoopEncryptionService) Algorithm() string {
	return AlgorithmNoop
}

// KeyID は "noop" を返す
func (s *NoopEncryptionService) KeyID() string {
	return AlgorithmNoop
}

var _ services.EncryptionService = (*NoopEncryptionService)(nil)
