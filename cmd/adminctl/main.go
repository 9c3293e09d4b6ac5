package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/adminpanel/internal/client"
	dto "github.com/dropDatabas3/adminpanel/internal/http/dto/users"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

type cli struct {
	baseURL string
	apiKey  string
	out     string // "json" | "text"
	timeout time.Duration
}

func (c *cli) client() *client.Client {
	return client.New(c.baseURL, client.WithAdminKey(c.apiKey))
}

func (c *cli) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func (c *cli) print(v any, text func()) {
	if c.out == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
		return
	}
	text()
}

func main() {
	_ = godotenv.Load()
	logger.Init(logger.Config{Env: "dev", Level: "warn"})

	c := &cli{
		baseURL: envOr("ADMINPANEL_URL", "http://localhost:3001"),
		apiKey:  envOr("ADMINPANEL_ADMIN_KEY", ""),
		out:     envOr("ADMINPANEL_OUT", "text"),
		timeout: 30 * time.Second,
	}

	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "CLI del Admin Panel: usuarios, export y verificación de integridad",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.baseURL, "url", c.baseURL, "URL base de la API (env ADMINPANEL_URL)")
	root.PersistentFlags().StringVar(&c.apiKey, "admin-api-key", c.apiKey, "X-Admin-API-Key (env ADMINPANEL_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&c.out, "out", c.out, "Formato de salida: json|text")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", c.timeout, "Timeout por comando")

	root.AddCommand(usersCmd(c), publicKeyCmd(c))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func publicKeyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "public-key",
		Short: "Imprime la clave pública PEM del servidor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			pem, err := c.client().FetchPublicKey(ctx)
			if err != nil {
				return err
			}
			c.print(dto.PublicKeyResponse{PublicKey: pem}, func() { fmt.Print(pem) })
			return nil
		},
	}
}

func usersCmd(c *cli) *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Operaciones sobre usuarios"}

	// list
	var lp client.ListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "Lista usuarios paginados",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			res, err := c.client().List(ctx, lp)
			if err != nil {
				return err
			}
			c.print(res, func() {
				printUsers(res.Users)
				p := res.Pagination
				fmt.Printf("page %d/%d · %d total\n", p.CurrentPage, p.TotalPages, p.TotalCount)
			})
			return nil
		},
	}
	list.Flags().IntVar(&lp.Page, "page", 0, "Página (default 1)")
	list.Flags().IntVar(&lp.Limit, "limit", 0, "Tamaño de página (default 10, máx 100)")
	list.Flags().StringVar(&lp.Search, "search", "", "Filtro por email (contiene)")
	list.Flags().StringVar(&lp.SortBy, "sort-by", "", "email|role|status|createdAt|updatedAt")
	list.Flags().StringVar(&lp.SortOrder, "sort-order", "", "asc|desc")
	list.Flags().StringVar(&lp.FilterRole, "role", "", "ADMIN|USER")
	list.Flags().StringVar(&lp.FilterStatus, "status", "", "ACTIVE|INACTIVE")

	// get
	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Muestra un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			u, err := c.client().Get(ctx, args[0])
			if err != nil {
				return err
			}
			c.print(u, func() { printUsers([]dto.User{*u}) })
			return nil
		},
	}

	// create
	var createReq dto.CreateUserRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario (se firma en el servidor)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createReq.Email == "" {
				return errors.New("--email es requerido")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			u, err := c.client().Create(ctx, createReq)
			if err != nil {
				return err
			}
			c.print(u, func() { printUsers([]dto.User{*u}) })
			return nil
		},
	}
	create.Flags().StringVar(&createReq.Email, "email", "", "Email")
	create.Flags().StringVar(&createReq.Role, "role", "", "ADMIN|USER (default USER)")
	create.Flags().StringVar(&createReq.Status, "status", "", "ACTIVE|INACTIVE (default ACTIVE)")

	// update
	var updReq dto.UpdateUserRequest
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Actualiza email/rol/estado (un email nuevo se re-firma)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			res, err := c.client().Update(ctx, args[0], updReq)
			if err != nil {
				return err
			}
			c.print(res, func() { printUsers([]dto.User{res.User}) })
			return nil
		},
	}
	update.Flags().StringVar(&updReq.Email, "email", "", "Email nuevo")
	update.Flags().StringVar(&updReq.Role, "role", "", "ADMIN|USER")
	update.Flags().StringVar(&updReq.Status, "status", "", "ACTIVE|INACTIVE")

	// delete
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Borra un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.client().Delete(ctx, args[0]); err != nil {
				return err
			}
			c.print(dto.MessageResponse{Message: "User deleted successfully"}, func() { fmt.Println("deleted", args[0]) })
			return nil
		},
	}

	// export
	var outFile string
	export := &cobra.Command{
		Use:   "export",
		Short: "Descarga el export binario (users.pb)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			exp, err := c.client().FetchExport(ctx)
			if err != nil {
				return err
			}
			if outFile == "-" {
				_, err = os.Stdout.Write(exp.Payload)
				return err
			}
			if err := os.WriteFile(outFile, exp.Payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%d bytes → %s\n", len(exp.Payload), outFile)
			return nil
		},
	}
	export.Flags().StringVarP(&outFile, "output", "o", "users.pb", "Archivo destino (- = stdout)")

	// verify
	var (
		strict    bool
		headerKey bool
		keyFile   string
	)
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Baja clave y export y verifica hash + firma de cada usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := client.VerifyOptions{UseHeaderKey: headerKey}
			if keyFile != "" {
				b, err := os.ReadFile(keyFile)
				if err != nil {
					return err
				}
				opts.PublicKeyPEM = string(b)
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			res, err := c.client().FetchAndVerify(ctx, opts)
			if err != nil {
				return err
			}

			invalid := 0
			for _, u := range res {
				if !u.Verified {
					invalid++
				}
			}
			c.print(res, func() {
				tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tEMAIL\tROLE\tSTATUS\tINTEGRITY\tDETAIL")
				for _, u := range res {
					state := "VALID"
					if !u.Verified {
						state = "INVALID"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						u.Record.ID, u.Record.Email, u.Record.Role, u.Record.Status, state, u.VerificationError)
				}
				_ = tw.Flush()
				fmt.Printf("%d users · %d invalid\n", len(res), invalid)
			})
			if strict && invalid > 0 {
				return fmt.Errorf("%d of %d users failed verification", invalid, len(res))
			}
			return nil
		},
	}
	verify.Flags().BoolVar(&strict, "strict", false, "Exit != 0 si algún usuario no verifica")
	verify.Flags().BoolVar(&headerKey, "header-key", false, "Usar X-Public-Key del export en vez de /public-key")
	verify.Flags().StringVar(&keyFile, "public-key-file", "", "Verificar contra un PEM local (clave fijada)")

	users.AddCommand(list, get, create, update, del, export, verify)
	return users
}

func printUsers(us []dto.User) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tROLE\tSTATUS\tCREATED")
	for _, u := range us {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.Status, u.CreatedAt)
	}
	_ = tw.Flush()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
