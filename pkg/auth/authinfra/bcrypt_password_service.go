package authinfra

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptPasswordService hashes passwords with bcrypt.
type BcryptPasswordService struct {
	cost int
}

// NewBcryptPasswordService creates the hasher. Cost outside bcrypt's valid
// range falls back to the library default.
func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

// Hash derives a bcrypt hash from the password.
func (s *BcryptPasswordService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether the password matches the hash.
func (s *BcryptPasswordService) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
