package certificate

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirosfoundation/go-esocial/internal/errs"
	"github.com/sirosfoundation/go-esocial/internal/testpki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "s3nh@-teste"

func writeBundle(t *testing.T) (string, *testpki.Identity) {
	t.Helper()

	ca := testpki.NewCA(t, "AC Teste")
	id := ca.Issue(t, "EMPREGADOR TESTE:12345678000195")
	path := testpki.WriteFile(t, t.TempDir(), "empresa.pfx", id.PKCS12(t, testPassword))
	return path, id
}

func decodeAll(t *testing.T, data []byte) []*pem.Block {
	t.Helper()

	var blocks []*pem.Block
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return blocks
		}
		blocks = append(blocks, block)
	}
}

func TestConvert(t *testing.T) {
	pfxPath, id := writeBundle(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, Convert(pfxPath, testPassword, certPath, keyPath))

	certData, err := os.ReadFile(certPath)
	require.NoError(t, err)
	blocks := decodeAll(t, certData)
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockCertificate, blocks[0].Type)
	assert.Equal(t, id.Cert.Raw, blocks[0].Bytes, "leaf comes first")
	assert.Equal(t, id.CA.Cert.Raw, blocks[1].Bytes, "chain follows the leaf")

	keyData, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	keyBlocks := decodeAll(t, keyData)
	require.Len(t, keyBlocks, 1)
	assert.Equal(t, BlockRSAPrivateKey, keyBlocks[0].Type)
	assert.Empty(t, keyBlocks[0].Headers, "key must not be encrypted")

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConvert_Overwrites(t *testing.T) {
	pfxPath, _ := writeBundle(t)
	dir := t.TempDir()
	certPath := testpki.WriteFile(t, dir, "cert.pem", []byte("stale"))
	keyPath := testpki.WriteFile(t, dir, "key.pem", []byte("stale"))

	require.NoError(t, Convert(pfxPath, testPassword, certPath, keyPath))

	data, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestConvert_RestrictsExistingKeyFile(t *testing.T) {
	pfxPath, _ := writeBundle(t)
	dir := t.TempDir()
	keyPath := testpki.WriteFile(t, dir, "key.pem", []byte("stale"))
	require.NoError(t, os.Chmod(keyPath, 0o644))

	require.NoError(t, Convert(pfxPath, testPassword, filepath.Join(dir, "cert.pem"), keyPath))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestConvert_WrongPassword(t *testing.T) {
	pfxPath, _ := writeBundle(t)
	dir := t.TempDir()

	err := Convert(pfxPath, "wrong", filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDecryption))

	_, statErr := os.Stat(filepath.Join(dir, "c.pem"))
	assert.True(t, os.IsNotExist(statErr), "nothing is written on failure")
}

func TestConvert_CorruptBundle(t *testing.T) {
	dir := t.TempDir()
	pfxPath := testpki.WriteFile(t, dir, "broken.pfx", []byte("not a pkcs12 file"))

	err := Convert(pfxPath, testPassword, filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem"))
	assert.ErrorIs(t, err, errs.ErrDecryption)
}

func TestConvert_MissingBundle(t *testing.T) {
	dir := t.TempDir()

	err := Convert(filepath.Join(dir, "missing.pfx"), testPassword, filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem"))
	assert.ErrorIs(t, err, errs.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvert_UnwritableOutput(t *testing.T) {
	pfxPath, _ := writeBundle(t)
	dir := t.TempDir()
	badPath := filepath.Join(dir, "no-such-dir", "cert.pem")

	err := Convert(pfxPath, testPassword, badPath, filepath.Join(dir, "k.pem"))
	assert.ErrorIs(t, err, errs.ErrIO)

	_, statErr := os.Stat(filepath.Join(dir, "k.pem"))
	assert.True(t, os.IsNotExist(statErr), "key is removed when the certificate cannot be written")

	err = Convert(pfxPath, testPassword, filepath.Join(dir, "c.pem"), filepath.Join(dir, "no-such-dir", "key.pem"))
	assert.ErrorIs(t, err, errs.ErrIO)

	_, statErr = os.Stat(filepath.Join(dir, "c.pem"))
	assert.True(t, os.IsNotExist(statErr), "no certificate is left behind when the key cannot be written")
}

func TestConvertThenLoadKeyPair(t *testing.T) {
	pfxPath, id := writeBundle(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, Convert(pfxPath, testPassword, certPath, keyPath))

	pair, err := LoadKeyPair(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, id.Cert.Raw, pair.Leaf.Raw)
	require.Len(t, pair.Chain, 1)
	assert.Equal(t, id.CA.Cert.Raw, pair.Chain[0].Raw)
}

func TestLoadKeyPair_Mismatched(t *testing.T) {
	ca := testpki.NewCA(t, "AC Teste")
	a := ca.Issue(t, "a")
	b := ca.Issue(t, "b")
	dir := t.TempDir()
	certPath := testpki.WriteFile(t, dir, "cert.pem", testpki.CertPEM(a.Cert))
	keyPath := testpki.WriteFile(t, dir, "key.pem", testpki.KeyPEM(b.Key))

	_, err := LoadKeyPair(certPath, keyPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSigningConfig)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoadKeyPair_Invalid(t *testing.T) {
	dir := t.TempDir()
	certPath := testpki.WriteFile(t, dir, "cert.pem", []byte("garbage"))
	keyPath := testpki.WriteFile(t, dir, "key.pem", []byte("garbage"))

	_, err := LoadKeyPair(certPath, keyPath)
	assert.ErrorIs(t, err, errs.ErrSigningConfig)

	_, err = LoadKeyPair(filepath.Join(dir, "missing.pem"), keyPath)
	assert.ErrorIs(t, err, errs.ErrSigningConfig)
	assert.ErrorIs(t, err, errs.ErrIO)
}

func TestEncodePrivateKey(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	data, err := EncodePrivateKey(ecKey)
	require.NoError(t, err)
	block, _ := pem.Decode(data)
	require.NotNil(t, block)
	assert.Equal(t, BlockECPrivateKey, block.Type)

	parsed, err := ParsePrivateKey(data)
	require.NoError(t, err)
	assert.True(t, ecKey.Equal(parsed))

	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = EncodePrivateKey(edKey)
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestBundle_TLSCertificate(t *testing.T) {
	pfxPath, id := writeBundle(t)

	bundle, err := LoadPKCS12(pfxPath, testPassword)
	require.NoError(t, err)

	tlsCert := bundle.TLSCertificate()
	require.Len(t, tlsCert.Certificate, 2)
	assert.Equal(t, id.Cert.Raw, tlsCert.Certificate[0])
	assert.Equal(t, id.CA.Cert.Raw, tlsCert.Certificate[1])
	assert.Equal(t, id.Cert, tlsCert.Leaf)
	assert.NotNil(t, tlsCert.PrivateKey)
}

func TestCheckValidity(t *testing.T) {
	ca := testpki.NewCA(t, "AC Teste")
	now := time.Now()
	id := ca.IssueValid(t, "x", now.Add(-48*time.Hour), now.Add(-24*time.Hour))

	assert.ErrorIs(t, CheckValidity(id.Cert, now), ErrCertificateExpired)
	assert.ErrorIs(t, CheckValidity(id.Cert, now.Add(-72*time.Hour)), ErrCertificateNotYetValid)
	assert.NoError(t, CheckValidity(id.Cert, now.Add(-36*time.Hour)))
}

func TestExpiresWithin(t *testing.T) {
	ca := testpki.NewCA(t, "AC Teste")
	now := time.Now()
	id := ca.IssueValid(t, "x", now.Add(-time.Hour), now.Add(10*24*time.Hour))

	assert.True(t, ExpiresWithin(id.Cert, now, 30*24*time.Hour))
	assert.False(t, ExpiresWithin(id.Cert, now, 5*24*time.Hour))
	assert.False(t, ExpiresWithin(id.Cert, now.Add(11*24*time.Hour), 30*24*time.Hour), "expired certificates are reported by CheckValidity")

	assert.Equal(t, 9, DaysLeft(id.Cert, now.Add(time.Hour)))
	assert.Zero(t, DaysLeft(id.Cert, now.Add(11*24*time.Hour)))
}

func TestDescribe(t *testing.T) {
	ca := testpki.NewCA(t, "AC Teste")
	id := ca.Issue(t, "EMPREGADOR TESTE")

	info := Describe(id.Cert)
	assert.Contains(t, info.Subject, "EMPREGADOR TESTE")
	assert.Contains(t, info.Issuer, "AC Teste")
	assert.Len(t, info.Fingerprint, 64)
	assert.Equal(t, id.Cert.NotAfter, info.NotAfter)
}

func TestLoadCertPool(t *testing.T) {
	ca := testpki.NewCA(t, "AC Raiz Teste")
	dir := t.TempDir()
	path := testpki.WriteFile(t, dir, "ca.pem", testpki.CertPEM(ca.Cert))

	pool, err := LoadCertPool(path)
	require.NoError(t, err)
	require.NotNil(t, pool)

	_, err = LoadCertPool(filepath.Join(dir, "missing.pem"))
	assert.ErrorIs(t, err, errs.ErrIO)

	empty := testpki.WriteFile(t, dir, "empty.pem", []byte("nothing here"))
	_, err = LoadCertPool(empty)
	assert.ErrorIs(t, err, errs.ErrParse)
}
