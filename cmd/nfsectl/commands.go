package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/infrastructure/api"
	"github.com/notafacil/nfse-api/internal/session"
	"github.com/notafacil/nfse-api/pkg/logger"
)

func newAPIClient() *api.Client {
	return api.NewClient(apiURL, token)
}

func newStore() *session.Store {
	return session.NewStore(newAPIClient(), stderrNotifier{}, stdinConfirmer{})
}

// ── login ────────────────────────────────────────────────────────────────────

func newLoginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Autentica e imprime o token (exporte em NFSE_TOKEN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email é obrigatório")
			}
			fmt.Fprint(os.Stderr, "Senha: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("lendo senha: %w", err)
			}

			tok, err := newAPIClient().Login(cmd.Context(), email, string(raw))
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email do usuário")
	return cmd
}

// ── drafts ───────────────────────────────────────────────────────────────────

func newDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Rascunhos de NFS-e por emissor",
	}
	cmd.AddCommand(newDraftsListCmd())
	cmd.AddCommand(newDraftsUploadCmd())
	cmd.AddCommand(newDraftsReconcileCmd())
	cmd.AddCommand(newDraftsConfirmCmd())
	cmd.AddCommand(newDraftsDeleteCmd())
	return cmd
}

func requireEmitter(emitterID string) error {
	if emitterID == "" {
		return fmt.Errorf("--emitter é obrigatório")
	}
	return nil
}

func printDrafts(rows []dto.DraftResponse) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPETÊNCIA\tCLIENTE\tVALOR\tSEQ\tSTATUS\tERROS")
	for _, d := range rows {
		errs := ""
		if len(d.Errors) > 0 {
			errs = d.Errors[0]
			if len(d.Errors) > 1 {
				errs = fmt.Sprintf("%s (+%d)", errs, len(d.Errors)-1)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			d.ID, d.CompetencyMonth, d.ClientName, d.Amount.StringFixed(2), d.Seq, d.Status, errs)
	}
	w.Flush()
}

func newDraftsListCmd() *cobra.Command {
	var emitterID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lista os rascunhos em aberto do emissor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEmitter(emitterID); err != nil {
				return err
			}
			store := newStore()
			if err := store.SetActiveEmitter(cmd.Context(), emitterID); err != nil {
				return err
			}
			printDrafts(store.Rows(emitterID))
			return nil
		},
	}
	cmd.Flags().StringVar(&emitterID, "emitter", "", "ID do emissor")
	return cmd
}

func newDraftsUploadCmd() *cobra.Command {
	var emitterID, file string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Envia uma planilha de emissão e grava o lote como rascunhos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEmitter(emitterID); err != nil {
				return err
			}
			if file == "" {
				return fmt.Errorf("--file é obrigatório")
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("lendo planilha: %w", err)
			}

			store := newStore()
			if err := store.SetActiveEmitter(cmd.Context(), emitterID); err != nil {
				return err
			}
			result, err := store.Upload(cmd.Context(), emitterID, filepath.Base(file), content)
			if err != nil {
				return err
			}

			fmt.Printf("Lote %s: %d válidas, %d inválidas\n",
				result.Preview.PreviewBatchID, result.Preview.Valid, result.Preview.Invalid)
			for _, g := range result.Groups {
				fmt.Printf("possível duplicidade %s: linhas %v\n", g.Key, g.Indices)
			}
			if len(result.Groups) > 0 {
				fmt.Println("use 'nfsectl drafts reconcile' para decidir o que manter")
			}
			printDrafts(store.Rows(emitterID))
			return nil
		},
	}
	cmd.Flags().StringVar(&emitterID, "emitter", "", "ID do emissor")
	cmd.Flags().StringVar(&file, "file", "", "planilha .xlsx ou .csv")
	return cmd
}

func newDraftsReconcileCmd() *cobra.Command {
	var emitterID, batchID string
	var keep, group []int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mantém apenas as linhas indicadas dos grupos duplicados do lote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEmitter(emitterID); err != nil {
				return err
			}
			if batchID == "" {
				return fmt.Errorf("--batch é obrigatório")
			}
			store := newStore()
			if err := store.SetActiveEmitter(cmd.Context(), emitterID); err != nil {
				return err
			}
			return store.Reconcile(cmd.Context(), dto.ReconcileRequest{
				EmitterID:      emitterID,
				PreviewBatchID: batchID,
				KeepIndices:    keep,
				GroupIndices:   group,
			})
		},
	}
	cmd.Flags().StringVar(&emitterID, "emitter", "", "ID do emissor")
	cmd.Flags().StringVar(&batchID, "batch", "", "preview_batch_id devolvido pelo upload")
	cmd.Flags().IntSliceVar(&keep, "keep", nil, "índices de linha a manter")
	cmd.Flags().IntSliceVar(&group, "group", nil, "índices de linha dos grupos em decisão")
	return cmd
}

func newDraftsConfirmCmd() *cobra.Command {
	var emitterID string
	var ids []string
	var all bool
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirma rascunhos para emissão (reserva número de DPS e cria a task)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEmitter(emitterID); err != nil {
				return err
			}
			if !all && len(ids) == 0 {
				return fmt.Errorf("informe --ids ou --all")
			}

			store := newStore()
			if err := store.SetActiveEmitter(cmd.Context(), emitterID); err != nil {
				return err
			}

			sel := store.Selection(emitterID)
			if all {
				rows := store.Rows(emitterID)
				allIDs := make([]string, 0, len(rows))
				for _, d := range rows {
					allIDs = append(allIDs, d.ID)
				}
				sel.SetAllFiltered(allIDs, true)
			} else {
				for _, id := range ids {
					sel.Toggle(id)
				}
			}

			resp, err := store.Confirm(cmd.Context(), emitterID)
			if err != nil {
				return err
			}
			for _, taskID := range resp.TaskIDs {
				fmt.Println("task criada:", taskID)
			}
			for _, e := range resp.Errors {
				fmt.Fprintf(os.Stderr, "rascunho %s: %s\n", e.DraftID, e.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&emitterID, "emitter", "", "ID do emissor")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "IDs dos rascunhos a confirmar")
	cmd.Flags().BoolVar(&all, "all", false, "confirma todos os rascunhos em aberto")
	return cmd
}

func newDraftsDeleteCmd() *cobra.Command {
	var emitterID, id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove um rascunho",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEmitter(emitterID); err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("--id é obrigatório")
			}
			store := newStore()
			if err := store.SetActiveEmitter(cmd.Context(), emitterID); err != nil {
				return err
			}
			return store.ClearDraft(cmd.Context(), emitterID, id)
		},
	}
	cmd.Flags().StringVar(&emitterID, "emitter", "", "ID do emissor")
	cmd.Flags().StringVar(&id, "id", "", "ID do rascunho")
	return cmd
}

// ── import ───────────────────────────────────────────────────────────────────

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Importação em massa de clientes por planilha",
	}
	cmd.AddCommand(newImportSubmitCmd())
	cmd.AddCommand(newImportStatusCmd())
	return cmd
}

func newPoller(interval time.Duration) (*session.Poller, error) {
	handles, err := session.NewFileHandleStore(handlePath())
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	return session.NewPoller(newAPIClient(), stderrNotifier{}, handles, log, interval), nil
}

// waitJob acompanha o job até o estado terminal, imprimindo o progresso.
func waitJob(ctx context.Context, poller *session.Poller, jobID string, interval time.Duration) error {
	stop, err := poller.Track(ctx, jobID)
	if err != nil {
		return err
	}
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := poller.Status()
			if st == nil {
				continue
			}
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d (inseridos %d, ignorados %d)",
				st.Status, st.Processed, st.Total, st.Inserted, st.Skipped)
			if st.Status == "finished" || st.Status == "error" {
				fmt.Fprintln(os.Stderr)
				printRowErrors(st)
				return nil
			}
		}
	}
}

func printRowErrors(st *dto.ImportStatusResponse) {
	for _, e := range st.Errors {
		fmt.Fprintf(os.Stderr, "linha %d (%s): %s\n", e.Row, e.Document, e.Reason)
	}
}

func newImportSubmitCmd() *cobra.Command {
	var file string
	var watch bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Envia a planilha de clientes e inicia o job assíncrono",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file é obrigatório")
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("lendo planilha: %w", err)
			}

			jobID, err := newAPIClient().SubmitImport(cmd.Context(), filepath.Base(file), content)
			if err != nil {
				return err
			}
			fmt.Println("job:", jobID)

			if !watch {
				return nil
			}
			poller, err := newPoller(interval)
			if err != nil {
				return err
			}
			return waitJob(cmd.Context(), poller, jobID, interval)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "planilha .xlsx ou .csv")
	cmd.Flags().BoolVar(&watch, "watch", false, "acompanha o job até terminar")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "intervalo de consulta do status")
	return cmd
}

func newImportStatusCmd() *cobra.Command {
	var watch bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "status [job_id]",
		Short: "Consulta (ou retoma) o acompanhamento de um job de importação",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = args[0]
			}
			if jobID == "" {
				// Sem argumento, retoma o handle salvo da última importação.
				handles, err := session.NewFileHandleStore(handlePath())
				if err != nil {
					return err
				}
				jobID, err = handles.Load()
				if err != nil {
					return err
				}
				if jobID == "" {
					fmt.Println("nenhuma importação em acompanhamento")
					return nil
				}
			}

			if watch {
				poller, err := newPoller(interval)
				if err != nil {
					return err
				}
				return waitJob(cmd.Context(), poller, jobID, interval)
			}

			st, err := newAPIClient().GetImportStatus(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			fmt.Printf("job %s: %s %d/%d (inseridos %d, ignorados %d)\n",
				st.JobID, st.Status, st.Processed, st.Total, st.Inserted, st.Skipped)
			printRowErrors(st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "acompanha até terminar")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "intervalo de consulta do status")
	return cmd
}
