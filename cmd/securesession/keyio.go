package main

import (
	"encoding/pem"
	"fmt"
	"os"
)

func loadPEMKey(path, wantType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: not a PEM file", path)
	}
	if block.Type != wantType {
		return nil, fmt.Errorf("%s: PEM type %q, want %q", path, block.Type, wantType)
	}
	return block.Bytes, nil
}

func loadSigningPrivateKey(path string) ([]byte, error) {
	return loadPEMKey(path, "SECURESESSION SIGNING PRIVATE KEY")
}

func loadSigningPublicKey(path string) ([]byte, error) {
	return loadPEMKey(path, "SECURESESSION SIGNING PUBLIC KEY")
}
