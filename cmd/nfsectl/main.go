// nfsectl é o CLI de operação da API de NFS-e: prévia e confirmação de
// rascunhos por emissor e acompanhamento da importação em massa de clientes.
// Toda mutação passa pelo núcleo de sessão (internal/session), o mesmo usado
// por qualquer frontend: projeção local, seleção e ações com guarda de
// reentrância.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// apiURL e token vêm das flags globais ou das envs NFSE_API_URL / NFSE_TOKEN.
var (
	apiURL string
	token  string
)

func main() {
	root := &cobra.Command{
		Use:           "nfsectl",
		Short:         "Operação da API de NFS-e: rascunhos, confirmação e importação de clientes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", envOr("NFSE_API_URL", "http://localhost:8080"), "URL base da API")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("NFSE_TOKEN"), "Bearer token (ou env NFSE_TOKEN)")

	root.AddCommand(newLoginCmd())
	root.AddCommand(newDraftsCmd())
	root.AddCommand(newImportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// handlePath caminho do handle durável do job de importação, por usuário.
func handlePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "nfsectl", "import-job")
}

// stderrNotifier implementa session.Notifier escrevendo no stderr, deixando o
// stdout livre para saída tabular.
type stderrNotifier struct{}

func (stderrNotifier) Success(msg string) { fmt.Fprintln(os.Stderr, "✔", msg) }

func (stderrNotifier) Error(msg string) { fmt.Fprintln(os.Stderr, "✖", msg) }

func (stderrNotifier) Info(msg string) { fmt.Fprintln(os.Stderr, "•", msg) }

// stdinConfirmer implementa session.Confirmer com um prompt s/N no terminal;
// qualquer coisa diferente de "s"/"sim" é não.
type stdinConfirmer struct{}

func (stdinConfirmer) Confirm(_ context.Context, question string) bool {
	fmt.Fprintf(os.Stderr, "%s [s/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "s" || answer == "sim"
}
