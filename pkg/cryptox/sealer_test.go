package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("test-master-key-for-encryption-12345"))
	require.NoError(t, err)

	sealed1, err := s.Seal("refresh.jwt.value")
	require.NoError(t, err)
	sealed2, err := s.Seal("refresh.jwt.value")
	require.NoError(t, err)

	require.NotEqual(t, sealed1, sealed2, "random nonce should make ciphertexts differ")
	require.NotContains(t, sealed1, "refresh")

	for _, sealed := range []string{sealed1, sealed2} {
		plain, err := s.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, "refresh.jwt.value", plain)
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	a, err := cryptox.NewSealer([]byte("key-a"))
	require.NoError(t, err)
	b, err := cryptox.NewSealer([]byte("key-b"))
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.Error(t, err)
}

func TestOpenRejectsGarbage(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("key"))
	require.NoError(t, err)

	_, err = s.Open("AAAA")
	require.ErrorIs(t, err, cryptox.ErrCiphertextTooShort)

	_, err = s.Open("!!not base64!!")
	require.Error(t, err)
}

func TestNewSealerRejectsEmptyKey(t *testing.T) {
	_, err := cryptox.NewSealer(nil)
	require.Error(t, err)
}

func TestLoadMasterKey(t *testing.T) {
	t.Run("file wins over env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
		t.Setenv("TEST_MASTER_KEY", "from-env")

		key, ephemeral, err := cryptox.LoadMasterKey(path, "TEST_MASTER_KEY")
		require.NoError(t, err)
		require.False(t, ephemeral)
		require.Equal(t, []byte("from-file"), key)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_MASTER_KEY", "from-env")

		key, ephemeral, err := cryptox.LoadMasterKey("", "TEST_MASTER_KEY")
		require.NoError(t, err)
		require.False(t, ephemeral)
		require.Equal(t, []byte("from-env"), key)
	})

	t.Run("ephemeral fallback", func(t *testing.T) {
		t.Setenv("TEST_MASTER_KEY", "")

		key, ephemeral, err := cryptox.LoadMasterKey("", "TEST_MASTER_KEY")
		require.NoError(t, err)
		require.True(t, ephemeral)
		require.Len(t, key, 32)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := cryptox.LoadMasterKey(filepath.Join(t.TempDir(), "nope"), "TEST_MASTER_KEY")
		require.Error(t, err)
	})
}

func TestFingerprintTokenDeterministic(t *testing.T) {
	require.Equal(t, cryptox.FingerprintToken("abc"), cryptox.FingerprintToken("abc"))
	require.NotEqual(t, cryptox.FingerprintToken("abc"), cryptox.FingerprintToken("abd"))
	require.Len(t, cryptox.FingerprintToken("abc"), 43)
}

func TestGenerateToken(t *testing.T) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}
