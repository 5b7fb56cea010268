package services

import (
	"testing"

	"elevator-memo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureDefaultIsExclusive(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := NewAuthService(cfg)
	signatureService := NewSignatureService(cfg)
	user := createTestUser(t, authService, "signer", models.RoleUser)

	first, err := signatureService.Add(user.ID, "first.png", "/uploads/signatures/first.png", true)
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := signatureService.Add(user.ID, "second.png", "/uploads/signatures/second.png", true)
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	// The earlier default was demoted inside the same transaction.
	var defaults int64
	err = models.DB.Model(&models.Signature{}).
		Where("user_id = ? AND is_default = ?", user.ID, true).
		Count(&defaults).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), defaults)

	current, err := signatureService.GetDefault(user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestSignatureNonDefaultKeepsCurrentDefault(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := NewAuthService(cfg)
	signatureService := NewSignatureService(cfg)
	user := createTestUser(t, authService, "signer", models.RoleUser)

	first, err := signatureService.Add(user.ID, "first.png", "/uploads/signatures/first.png", true)
	require.NoError(t, err)

	_, err = signatureService.Add(user.ID, "extra.png", "/uploads/signatures/extra.png", false)
	require.NoError(t, err)

	current, err := signatureService.GetDefault(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
}

func TestSignatureDefaultsArePerUser(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := NewAuthService(cfg)
	signatureService := NewSignatureService(cfg)
	alice := createTestUser(t, authService, "alice", models.RoleUser)
	bob := createTestUser(t, authService, "bob", models.RoleUser)

	aliceSig, err := signatureService.Add(alice.ID, "alice.png", "/uploads/signatures/alice.png", true)
	require.NoError(t, err)

	_, err = signatureService.Add(bob.ID, "bob.png", "/uploads/signatures/bob.png", true)
	require.NoError(t, err)

	current, err := signatureService.GetDefault(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceSig.ID, current.ID)
}

func TestSignatureListDefaultFirst(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := NewAuthService(cfg)
	signatureService := NewSignatureService(cfg)
	user := createTestUser(t, authService, "signer", models.RoleUser)

	_, err := signatureService.Add(user.ID, "plain.png", "/uploads/signatures/plain.png", false)
	require.NoError(t, err)
	preferred, err := signatureService.Add(user.ID, "preferred.png", "/uploads/signatures/preferred.png", true)
	require.NoError(t, err)

	signatures, err := signatureService.List(user.ID)
	require.NoError(t, err)
	require.Len(t, signatures, 2)
	assert.Equal(t, preferred.ID, signatures[0].ID)
}

func TestSignatureDeleteOwnerScoped(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := NewAuthService(cfg)
	signatureService := NewSignatureService(cfg)
	alice := createTestUser(t, authService, "alice", models.RoleUser)
	bob := createTestUser(t, authService, "bob", models.RoleUser)

	sig, err := signatureService.Add(alice.ID, "alice.png", "/uploads/signatures/alice.png", true)
	require.NoError(t, err)

	_, err = signatureService.Delete(sig.ID, bob.ID)
	assert.ErrorIs(t, err, ErrSignatureNotFound)

	deleted, err := signatureService.Delete(sig.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/signatures/alice.png", deleted.FilePath)

	_, err = signatureService.GetDefault(alice.ID)
	assert.ErrorIs(t, err, ErrSignatureNotFound)
}

func TestGetDefaultWithoutSignatures(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := NewAuthService(cfg)
	signatureService := NewSignatureService(cfg)
	user := createTestUser(t, authService, "signer", models.RoleUser)

	_, err := signatureService.GetDefault(user.ID)
	assert.ErrorIs(t, err, ErrSignatureNotFound)
}
