//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "bin/paye-server"

// Build tidies deps then compiles to ./bin/paye-server.
func Build() error {
	mg.Deps(Tidy)
	fmt.Println(">> Building server binary...")
	// go-sqlite3 needs cgo
	return sh.RunWith(map[string]string{"CGO_ENABLED": "1"}, "go", "build", "-o", binary, "./cmd/server")
}

// Run builds then executes the binary.
func Run() error {
	mg.Deps(Build)
	fmt.Println(">> Starting server...")
	return sh.RunV("./" + binary)
}

// Dev starts the server via go run against an in-memory database.
func Dev() error {
	fmt.Println(">> Dev mode: go run ./cmd/server -db=:memory: ...")
	cmd := exec.Command("go", "run", "./cmd/server", "-db=:memory:")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "LOG_LEVEL=debug")
	return cmd.Run()
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Vet runs go vet.
func Vet() error {
	fmt.Println(">> go vet...")
	return sh.RunV("go", "vet", "./...")
}

// Test runs all unit tests with the race detector.
func Test() error {
	fmt.Println(">> Running tests...")
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover writes a coverage profile to coverage.out.
func Cover() error {
	fmt.Println(">> Running tests with coverage...")
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Check runs Vet and Test.
func Check() {
	mg.SerialDeps(Vet, Test)
}
