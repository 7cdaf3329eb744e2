package project

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	domainservices "github.com/takutakahashi/pushnotify/internal/domain/services"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/repositories"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/services"
)

type fixedKeys struct{}

func (fixedKeys) Generate() (string, string, error) {
	return "public-key", "private-key", nil
}

func newLocalEncryption(t *testing.T) *services.LocalEncryptionService {
	t.Helper()
	key := base64.StdEncoding.EncodeToString([]byte("01234567890123456789012345678901"))
	enc, err := services.NewLocalEncryptionService("", key)
	require.NoError(t, err)
	return enc
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProjectRepository()
	enc := newLocalEncryption(t)
	uc := NewCreateProjectUseCase(repo, fixedKeys{}, enc, "")

	resp, err := uc.Execute(ctx, &CreateProjectRequest{
		OwnerID:    "owner",
		OwnerEmail: "owner@example.com",
		Name:       "Shop",
		Domain:     "shop.example.com",
	})
	require.NoError(t, err)

	p := resp.Project
	assert.NotEmpty(t, p.ID())
	assert.Equal(t, "public-key", p.VAPID().PublicKey)
	assert.Equal(t, "mailto:owner@example.com", p.VAPID().Subject)
	assert.Equal(t, services.AlgorithmAESGCM, p.VAPID().PrivateKeyAlgorithm)
	assert.NotEqual(t, "private-key", p.VAPID().PrivateKey)

	plaintext, err := domainservices.OpenVAPIDPrivateKey(ctx, enc, p.VAPID())
	require.NoError(t, err)
	assert.Equal(t, "private-key", plaintext)

	require.Len(t, p.APIKeys(), 1)
	assert.True(t, p.APIKeys()[0].Active)

	stored, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.Name(), stored.Name())
}

func TestCreateProjectUsesConfiguredSubject(t *testing.T) {
	uc := NewCreateProjectUseCase(repositories.NewMemoryProjectRepository(), fixedKeys{}, services.NewNoopEncryptionService(), "mailto:ops@example.com")

	resp, err := uc.Execute(context.Background(), &CreateProjectRequest{OwnerID: "owner", Name: "Shop", Domain: "shop.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "mailto:ops@example.com", resp.Project.VAPID().Subject)
}

func TestCreateProjectValidation(t *testing.T) {
	uc := NewCreateProjectUseCase(repositories.NewMemoryProjectRepository(), fixedKeys{}, services.NewNoopEncryptionService(), "")

	tests := []struct {
		name  string
		req   *CreateProjectRequest
		field string
	}{
		{"nil request", nil, ""},
		{"missing owner", &CreateProjectRequest{Name: "Shop", Domain: "d", OwnerEmail: "e"}, "owner"},
		{"blank name", &CreateProjectRequest{OwnerID: "o", Name: "  ", Domain: "d", OwnerEmail: "e"}, "name"},
		{"missing domain", &CreateProjectRequest{OwnerID: "o", Name: "Shop", OwnerEmail: "e"}, "domain"},
		{"unknown platform", &CreateProjectRequest{OwnerID: "o", Name: "Shop", Domain: "d", OwnerEmail: "e", Platform: "tv"}, "platform"},
		{"no contact", &CreateProjectRequest{OwnerID: "o", Name: "Shop", Domain: "d"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.req)
			var verr entities.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestManageProject(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProjectRepository()
	created, err := NewCreateProjectUseCase(repo, fixedKeys{}, services.NewNoopEncryptionService(), "mailto:ops@example.com").
		Execute(ctx, &CreateProjectRequest{OwnerID: "owner", Name: "Shop", Domain: "shop.example.com"})
	require.NoError(t, err)
	id := created.Project.ID()
	uc := NewManageProjectUseCase(repo)

	t.Run("owner reads and lists", func(t *testing.T) {
		p, err := uc.Get(ctx, id, "owner")
		require.NoError(t, err)
		assert.Equal(t, "Shop", p.Name())

		projects, err := uc.List(ctx, "owner")
		require.NoError(t, err)
		assert.Len(t, projects, 1)
	})

	t.Run("other owner is forbidden", func(t *testing.T) {
		_, err := uc.Get(ctx, id, "intruder")
		var forbidden entities.ErrForbidden
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("unknown project is not found", func(t *testing.T) {
		_, err := uc.Get(ctx, "missing", "owner")
		var notFound entities.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("update settings", func(t *testing.T) {
		p, err := uc.Update(ctx, &UpdateProjectRequest{
			ProjectID:   id,
			UserID:      "owner",
			Name:        "Store",
			DNDSettings: &entities.DNDSettings{Enabled: true, MaxNotifications: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, "Store", p.Name())
		assert.Equal(t, "shop.example.com", p.Domain())
		assert.Equal(t, entities.DNDSettings{Enabled: true, MaxNotifications: 3}, p.DNDSettings())
	})

	t.Run("negative DND limit is rejected", func(t *testing.T) {
		_, err := uc.Update(ctx, &UpdateProjectRequest{ProjectID: id, UserID: "owner", DNDSettings: &entities.DNDSettings{MaxNotifications: -1}})
		var verr entities.ErrValidation
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("public key needs no owner", func(t *testing.T) {
		key, err := uc.PublicKey(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "public-key", key)
	})

	t.Run("api key authentication records use", func(t *testing.T) {
		key := created.Project.APIKeys()[0].Key
		p, err := uc.AuthenticateAPIKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID())

		stored, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, stored.APIKeys()[0].LastUsed)

		_, err = uc.AuthenticateAPIKey(ctx, "wrong")
		var notFound entities.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, uc.Delete(ctx, id, "owner"))
		_, err := uc.Get(ctx, id, "owner")
		var notFound entities.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}
