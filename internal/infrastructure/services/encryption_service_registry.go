package services

import (
	"context"
	"fmt"
	"log"

	"github.com/takutakahashi/pushnotify/internal/domain/services"
)

// EncryptionServiceRegistry seals new values with a primary service and routes
// decryption to whichever registered service produced the value
type EncryptionServiceRegistry struct {
	primary services.EncryptionService

	// Key: algorithm (e.g., "noop", "aes-256-gcm", "aws-kms")
	byAlgorithm map[string]services.EncryptionService

	// Key: "algorithm:keyID"
	byAlgorithmAndKey map[string]services.EncryptionService
}

// NewEncryptionServiceRegistry creates a registry that encrypts with primary.
// Plaintext values stay readable through a registered noop service.
func NewEncryptionServiceRegistry(primary services.EncryptionService) *EncryptionServiceRegistry {
	r := &EncryptionServiceRegistry{
		primary:           primary,
		byAlgorithm:       make(map[string]services.EncryptionService),
		byAlgorithmAndKey: make(map[string]services.EncryptionService),
	}
	r.Register(primary)
	r.Register(NewNoopEncryptionService())
	return r
}

// Register adds a service able to decrypt values it sealed
func (r *EncryptionServiceRegistry) Register(service services.EncryptionService) {
	if service == nil {
		return
	}

	algorithm := service.Algorithm()
	if _, exists := r.byAlgorithm[algorithm]; !exists {
		r.byAlgorithm[algorithm] = service
	}
	r.byAlgorithmAndKey[registryKey(algorithm, service.KeyID())] = service
	log.Printf("[ENCRYPTION_REGISTRY] Registered %s (keyID: %s)", algorithm, service.KeyID())
}

// ForDecryption returns the service matching the metadata, preferring an exact key match
func (r *EncryptionServiceRegistry) ForDecryption(metadata services.EncryptionMetadata) (services.EncryptionService, error) {
	if service, exists := r.byAlgorithmAndKey[registryKey(metadata.Algorithm, metadata.KeyID)]; exists {
		return service, nil
	}
	if service, exists := r.byAlgorithm[metadata.Algorithm]; exists {
		log.Printf("[ENCRYPTION_REGISTRY] Using algorithm-only match for %s (keyID: %s)", metadata.Algorithm, metadata.KeyID)
		return service, nil
	}
	return nil, fmt.Errorf("no encryption service registered for %s", metadata.Algorithm)
}

// Encrypt seals plaintext with the primary service
func (r *EncryptionServiceRegistry) Encrypt(ctx context.Context, plaintext string) (*services.EncryptedData, error) {
	return r.primary.Encrypt(ctx, plaintext)
}

// Decrypt opens a value with the service recorded in its metadata
func (r *EncryptionServiceRegistry) Decrypt(ctx context.Context, encrypted *services.EncryptedData) (string, error) {
	service, err := r.ForDecryption(encrypted.Metadata)
	if err != nil {
		return "", err
	}
	return service.Decrypt(ctx, encrypted)
}

// Algorithm returns the primary algorithm
func (r *EncryptionServiceRegistry) Algorithm() string {
	return r.primary.Algorithm()
}

// KeyID returns the primary key ID
func (r *EncryptionServiceRegistry) KeyID() string {
	return r.primary.KeyID()
}

func registryKey(algorithm, keyID string) string {
	return algorithm + ":" + keyID
}

var _ services.EncryptionService = (*EncryptionServiceRegistry)(nil)
