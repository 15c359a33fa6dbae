package hasher

import "golang.org/x/crypto/bcrypt"

// Hasher derives a verifiable secret from a plaintext password. The plaintext
// is never stored; Verify is the only way the hash is read back.
type Hasher interface {
	Hash(password string) ([]byte, error)
	Verify(hash []byte, password string) bool
}

type Bcrypt struct {
	cost int
}

var _ Hasher = (*Bcrypt)(nil)

func NewBcrypt() *Bcrypt {
	return &Bcrypt{cost: bcrypt.DefaultCost}
}

func (b *Bcrypt) Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), b.cost)
}

func (b *Bcrypt) Verify(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
