package main

import (
	"github.com/ouvidoria/portal-aprendiz/internal/auth"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

// hashPassword aplica a mesma política do cadastro antes de gerar o hash.
func hashPassword(pw string) (string, error) {
	if err := util.ValidatePassword(pw); err != nil {
		return "", err
	}
	return auth.Hash(pw)
}
