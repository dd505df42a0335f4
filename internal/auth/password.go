package auth

import (
	"github.com/alexedwards/argon2id"
)

var params = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera o hash Argon2id salgado gravado na coluna senha.
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// Verify compara a senha digitada com o hash gravado.
// Hash vazio ou malformado conta como senha incorreta.
func Verify(password, encodedHash string) bool {
	if encodedHash == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(password, encodedHash)
	return err == nil && ok
}

// WithParams troca os parâmetros de custo; usado pelos testes.
func WithParams(p *argon2id.Params) (restore func()) {
	old := params
	params = p
	return func() { params = old }
}
