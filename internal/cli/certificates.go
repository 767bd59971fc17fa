package cli

import (
	"context"
	"os"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	certificatedomain "github.com/smallbiznis/orgadmin/internal/certificate/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/urfave/cli/v3"
)

var certificateColumns = []string{"id", "name", "active", "created_at", "certificate_details.valid_at", "certificate_details.expires_at"}

func projectIDFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{Name: "project-id", Aliases: []string{"p"}, Usage: usage}
}

func (a *App) certificatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "certificates",
		Usage: "Manage mTLS certificates",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List organization or project certificates",
				Flags: []cli.Flag{limitFlag(0), projectIDFlag("list the certificates of this project")},
				Action: a.action(func(ctx context.Context, e *env) error {
					var (
						certs []certificatedomain.Certificate
						err   error
					)
					if pid := strings.TrimSpace(e.cmd.String("project-id")); pid != "" {
						certs, err = e.Certificates.ListForProject(ctx, pid, e.cmd.Int("limit"))
					} else {
						certs, err = e.Certificates.List(ctx, e.cmd.Int("limit"))
					}
					if err != nil {
						return err
					}
					return e.printer.Print(certs, certificateColumns...)
				}),
			},
			{
				Name:      "upload",
				Usage:     "Upload a PEM certificate",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "PEM file to upload", Required: true},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					name, err := e.arg(0, "NAME")
					if err != nil {
						return err
					}
					path := e.cmd.String("file")
					content, err := os.ReadFile(path)
					if err != nil {
						return apierr.Validationf("file", "read %s: %v", path, err)
					}
					cert, err := e.Certificates.Upload(ctx, certificatedomain.UploadRequest{Name: name, Content: string(content)})
					if err != nil {
						return err
					}
					return e.printer.Print(cert, certificateColumns...)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one certificate",
				ArgsUsage: "CERTIFICATE_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-content", Usage: "include the PEM content"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "CERTIFICATE_ID")
					if err != nil {
						return err
					}
					includeContent := e.cmd.Bool("include-content")
					cert, err := e.Certificates.Get(ctx, id, includeContent)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(cert)
					}
					if err := e.printer.Print(cert, certificateColumns...); err != nil {
						return err
					}
					if includeContent && cert.Details != nil && cert.Details.Content != "" {
						e.println()
						e.println(strings.TrimRight(cert.Details.Content, "\n"))
					}
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "Rename a certificate",
				ArgsUsage: "CERTIFICATE_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "new name", Required: true},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "CERTIFICATE_ID")
					if err != nil {
						return err
					}
					cert, err := e.Certificates.Rename(ctx, id, e.cmd.String("name"))
					if err != nil {
						return err
					}
					return e.printer.Print(cert, certificateColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete an inactive certificate",
				ArgsUsage: "CERTIFICATE_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "CERTIFICATE_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete("certificate "+id, func() (*client.DeleteResult, error) {
						return e.Certificates.Delete(ctx, id)
					})
				}),
			},
			a.toggleCertificatesCommand(true),
			a.toggleCertificatesCommand(false),
		},
	}
}

func (a *App) toggleCertificatesCommand(activate bool) *cli.Command {
	name, verb := "deactivate", "Deactivate"
	if activate {
		name, verb = "activate", "Activate"
	}
	return &cli.Command{
		Name:      name,
		Usage:     verb + " up to 10 certificates for the organization or a project",
		ArgsUsage: "CERTIFICATE_ID...",
		Flags:     []cli.Flag{projectIDFlag(strings.ToLower(verb) + " for this project only")},
		Action: a.action(func(ctx context.Context, e *env) error {
			ids := e.cmd.Args().Slice()
			pid := strings.TrimSpace(e.cmd.String("project-id"))

			var (
				res *certificatedomain.ToggleResult
				err error
			)
			switch {
			case activate && pid != "":
				res, err = e.Certificates.ActivateForProject(ctx, pid, ids)
			case activate:
				res, err = e.Certificates.Activate(ctx, ids)
			case pid != "":
				res, err = e.Certificates.DeactivateForProject(ctx, pid, ids)
			default:
				res, err = e.Certificates.Deactivate(ctx, ids)
			}
			if err != nil {
				return err
			}
			if e.json() {
				return e.printer.Print(res)
			}
			e.printf("%sd %d certificate(s).\n", verb, len(res.Data))
			return e.printer.Print(res.Data, certificateColumns...)
		}),
	}
}
