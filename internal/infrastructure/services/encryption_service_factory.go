package services

import (
	"context"
	"log"
	"time"
)

// EncryptionSettings selects and configures the VAPID key encryption backend
type EncryptionSettings struct {
	KMSKeyID  string
	KMSRegion string
	KeyFile   string
	// Key is a base64 encoded 32 byte AES key, used when KeyFile is empty
	Key string
}

// EncryptionServiceFactory は EncryptionService の実装を作成するファクトリー
type EncryptionServiceFactory struct {
	settings EncryptionSettings
	// probe は KMS の疎通確認に使う（テストで差し替え可能）
	probe func(ctx context.Context, service *KMSEncryptionService) error
}

// NewEncryptionServiceFactory は EncryptionServiceFactory を作成する
func NewEncryptionServiceFactory(settings EncryptionSettings) *EncryptionServiceFactory {
	return &EncryptionServiceFactory{
		settings: settings,
		probe:    probeKMS,
	}
}

// Create は EncryptionService のレジストリを作成する
// 優先順位: KMS → Local → Noop
// KMS が主の場合でもローカル鍵が設定されていれば復号用に登録する
func (f *EncryptionServiceFactory) Create(ctx context.Context) *EncryptionServiceRegistry {
	local := f.localService()

	if f.settings.KMSKeyID != "" && f.settings.KMSRegion != "" {
		service, err := NewKMSEncryptionService(ctx, f.settings.KMSKeyID, f.settings.KMSRegion)
		if err == nil {
			err = f.probe(ctx, service)
		}
		if err == nil {
			log.Printf("[ENCRYPTION] Using AWS KMS encryption (key: %s, region: %s)", f.settings.KMSKeyID, f.settings.KMSRegion)
			registry := NewEncryptionServiceRegistry(service)
			if local != nil {
				registry.Register(local)
			}
			return registry
		}
		// KMS が利用不可の場合はフォールバック
		log.Printf("[ENCRYPTION] KMS unavailable, falling back to next option: %v", err)
	}

	if local != nil {
		log.Printf("[ENCRYPTION] Using local AES-256-GCM encryption (key fingerprint: %s)", local.KeyID())
		return NewEncryptionServiceRegistry(local)
	}

	log.Printf("[ENCRYPTION] No encryption configured, VAPID private keys are stored in plaintext")
	return NewEncryptionServiceRegistry(NewNoopEncryptionService())
}

func (f *EncryptionServiceFactory) localService() *LocalEncryptionService {
	if f.settings.KeyFile == "" && f.settings.Key == "" {
		return nil
	}
	service, err := NewLocalEncryptionService(f.settings.KeyFile, f.settings.Key)
	if err != nil {
		log.Printf("[ENCRYPTION] Failed to create local encryption service: %v", err)
		return nil
	}
	return service
}

// probeKMS は KMS が利用可能かテスト用の暗号化で確認する
func probeKMS(ctx context.Context, service *KMSEncryptionService) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := service.Encrypt(ctx, "probe")
	return err
}
