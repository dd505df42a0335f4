// Command portalctl reúne as tarefas de operador do portal: provisionar
// auditores, cadastrar unidades, aplicar o schema e gerar hashes de senha.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ouvidoria/portal-aprendiz/internal/company"
	"github.com/ouvidoria/portal-aprendiz/internal/config"
	"github.com/ouvidoria/portal-aprendiz/internal/db"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd(openStore).Execute(); err != nil {
		os.Exit(1)
	}
}

// storeOpener abre o store de registros; substituído nos testes.
type storeOpener func(ctx context.Context) (store.Store, func(), error)

func openStore(ctx context.Context) (store.Store, func(), error) {
	cfg, err := config.LoadStore()
	if err != nil {
		return nil, func() {}, fmt.Errorf("config: %w", err)
	}
	return db.OpenStore(ctx, cfg)
}

func newRootCmd(open storeOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Tarefas de operador do portal Jovem Aprendiz",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newAuditorCmd(open),
		newEmpresaCmd(open),
		newSenhaCmd(),
		newMigrateCmd(),
	)
	return root
}

func newAuditorCmd(open storeOpener) *cobra.Command {
	auditor := &cobra.Command{
		Use:   "auditor",
		Short: "Gerencia auditores do Ministério",
	}

	var in service.AuditorInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Cria um auditor (único canal de cadastro do perfil ministerio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Senha == "" {
				senha, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in.Senha = senha
			}

			st, closeStore, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			// sessões e tokens não participam do provisionamento
			svc := service.NewAuthService(repo.NewUsers(st), nil, nil)
			u, err := svc.ProvisionAuditor(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "auditor %s (%s) criado\n", u.Nome, u.Identificacao)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&in.Nome, "nome", "", "Nome do auditor")
	f.StringVar(&in.Email, "email", "", "E-mail institucional (opcional)")
	f.StringVar(&in.Identificacao, "identificacao", "", "Matrícula funcional usada no login")
	f.StringVar(&in.Senha, "senha", "", "Senha inicial; omitida, é lida da entrada padrão")
	_ = create.MarkFlagRequired("nome")
	_ = create.MarkFlagRequired("identificacao")

	auditor.AddCommand(create)
	return auditor
}

func newEmpresaCmd(open storeOpener) *cobra.Command {
	empresa := &cobra.Command{
		Use:   "empresa",
		Short: "Gerencia as unidades oferecidas no cadastro de aprendizes",
	}

	var in company.UnitInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Cadastra uma unidade",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			created, err := company.NewService(repo.NewCompanies(st)).Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.ID, created.Rotulo())
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&in.NomeFantasia, "nome", "", "Nome fantasia")
	f.StringVar(&in.CNPJ, "cnpj", "", "CNPJ")
	f.StringVar(&in.Unidade, "unidade", "", "Nome da unidade (ex.: Matriz)")
	f.StringVar(&in.Endereco, "endereco", "", "Endereço")
	f.StringVar(&in.Cidade, "cidade", "", "Cidade")

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista as unidades cadastradas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			units, err := company.NewService(repo.NewCompanies(st)).List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range units {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", u.ID, u.Rotulo(), u.CNPJ, u.Cidade)
			}
			return nil
		},
	}

	empresa.AddCommand(add, list)
	return empresa
}

func newSenhaCmd() *cobra.Command {
	senha := &cobra.Command{
		Use:   "senha",
		Short: "Utilitários de senha",
	}
	senha.AddCommand(&cobra.Command{
		Use:   "hash [senha]",
		Short: "Gera o hash argon2id de uma senha (lida da entrada padrão se omitida)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				var err error
				if pw, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			hash, err := hashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return senha
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o schema no Postgres de DB_DSN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadStore()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.StoreBackend != config.StorePostgres {
				return fmt.Errorf("migrate só se aplica ao backend postgres (atual: %s)", cfg.StoreBackend)
			}

			pool, err := db.NewPool(cmd.Context(), cfg.DBDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			log.Info().Msg("schema aplicado")
			return nil
		},
	}
}

func readSecret(r io.Reader) (string, error) {
	var s string
	if _, err := fmt.Fscanln(r, &s); err != nil {
		return "", fmt.Errorf("ler senha da entrada padrão: %w", err)
	}
	return s, nil
}
