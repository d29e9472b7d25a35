package keys

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ledgertx.io/ledgertx/hashutil"
)

// KeyStore is a local-first key store.
//
// Layout under Directory:
//
//	<identifier>/root.key          Base58 root seed
//	<identifier>/roles/<role>.key  Base58 seed derived with DeriveRoleSeed
//
// Files are created 0600 inside 0700 directories.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Identifier string
	PublicKey  string
	Roles      []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ledgertx", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) getRootKeyFilePath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) getRoleKeyFilePath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

func checkName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, kind)
	}
	return nil
}

func CheckKeyName(identifier string) error { return checkName("identifier", identifier) }

func CheckRole(role string) error { return checkName("role", role) }

// ParseSeed decodes a Base58 32-byte seed.
func ParseSeed(seedB58 string) ([]byte, error) {
	return hashutil.DecodeFixed(strings.TrimSpace(seedB58), ed25519.SeedSize, "seed")
}

func (ks *KeyStore) saveSeedToFile(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hashutil.Base58Encode(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeedFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	defer Wipe(data)
	return ParseSeed(string(data))
}

func publicKeyFromSeed(seed []byte) (string, error) {
	kp, err := FromSeed(seed)
	if err != nil {
		return "", err
	}
	return kp.PublicKey, nil
}

// InitializeRootKey stores seed as the root key of identifier and returns its
// Base58 public key.
func (ks *KeyStore) InitializeRootKey(identifier string, seed []byte, overwrite bool) (publicKey string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	filePath = ks.getRootKeyFilePath(identifier)
	if err := ks.saveSeedToFile(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	publicKey, err = publicKeyFromSeed(seed)
	return publicKey, filePath, err
}

// DeriveKeyFromRole derives and stores the role seed for from/role.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (publicKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadSeedFromFile(ks.getRootKeyFilePath(from))
	if err != nil {
		return "", "", err
	}
	defer Wipe(rootSeed)
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	defer Wipe(roleSeed)
	filePath = ks.getRoleKeyFilePath(from, role)
	if err := ks.saveSeedToFile(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	publicKey, err = publicKeyFromSeed(roleSeed)
	return publicKey, filePath, err
}

func (ks *KeyStore) seedPath(identifier, role string) (string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", err
	}
	if role == "" {
		return ks.getRootKeyFilePath(identifier), nil
	}
	if err := CheckRole(role); err != nil {
		return "", err
	}
	return ks.getRoleKeyFilePath(identifier, role), nil
}

// ExportKey returns the Base58 public key of identifier (or of its role key).
func (ks *KeyStore) ExportKey(identifier string, role string) (string, error) {
	path, err := ks.seedPath(identifier, role)
	if err != nil {
		return "", err
	}
	seed, err := ks.loadSeedFromFile(path)
	if err != nil {
		return "", err
	}
	defer Wipe(seed)
	return publicKeyFromSeed(seed)
}

// LoadSeed resolves a signing seed from, in order: an inline Base58 seed, a
// key file, or a stored identifier (and optional role).
func (ks *KeyStore) LoadSeed(seedB58, signerName, signerRole, keyFile string) ([]byte, error) {
	if seedB58 != "" {
		return ParseSeed(seedB58)
	}
	if keyFile != "" {
		return ks.loadSeedFromFile(keyFile)
	}
	if signerName != "" {
		path, err := ks.seedPath(signerName, signerRole)
		if err != nil {
			return nil, err
		}
		return ks.loadSeedFromFile(path)
	}
	return nil, errors.New("no signer provided")
}

// PrivateKey returns the stored Base58 private key (seed form) for
// identifier/role, ready to hand to the signer.
func (ks *KeyStore) PrivateKey(identifier, role string) (string, error) {
	path, err := ks.seedPath(identifier, role)
	if err != nil {
		return "", err
	}
	seed, err := ks.loadSeedFromFile(path)
	if err != nil {
		return "", err
	}
	defer Wipe(seed)
	return hashutil.Base58Encode(seed), nil
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)

	var result []KeyEntry
	for _, identifier := range identifiers {
		entry := KeyEntry{Identifier: identifier}
		if pub, err := ks.ExportKey(identifier, ""); err == nil {
			entry.PublicKey = pub
		}
		rolesDir := filepath.Join(ks.Directory, identifier, "roles")
		if roleEntries, rerr := os.ReadDir(rolesDir); rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					entry.Roles = append(entry.Roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(entry.Roles)
		}
		result = append(result, entry)
	}
	return result, nil
}
