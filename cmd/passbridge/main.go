// passbridge: CLI de operaciones. Todo corre offline contra el secret
// compartido; no habla con ningún servicio.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dropDatabas3/passbridge/internal/handoff"
	"github.com/dropDatabas3/passbridge/internal/security/password"
	"github.com/dropDatabas3/passbridge/internal/token"
)

func main() {
	var (
		secret = envOr("PASSBRIDGE_SECRET", "")
		out    = envOr("PASSBRIDGE_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "passbridge",
		Short: "Operaciones del protocolo de handoff (mint/verify/hashpw)",
	}
	root.PersistentFlags().StringVar(&secret, "secret", secret, "Secret compartido (env PASSBRIDGE_SECRET)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	needSecret := func(cmd *cobra.Command, args []string) error {
		if secret == "" {
			return fmt.Errorf("falta el secret (flag --secret o env PASSBRIDGE_SECRET)")
		}
		return nil
	}

	// token mint
	var mintUID string
	var mintTTL time.Duration
	tokenMintCmd := &cobra.Command{
		Use:     "mint",
		Short:   "Firmar un token {uid, iat, exp} con el secret compartido",
		PreRunE: needSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mintUID == "" {
				return fmt.Errorf("--uid es requerido")
			}
			now := time.Now()
			signed, err := token.Sign(token.Payload{
				PrincipalID: mintUID,
				IssuedAt:    now.Unix(),
				ExpiresAt:   now.Add(mintTTL).Unix(),
			}, []byte(secret))
			if err != nil {
				return err
			}
			if out == "json" {
				return printJSON(map[string]any{"token": signed.Payload, "sig": signed.Sig})
			}
			fmt.Printf("token=%s\nsig=%s\n", signed.Payload, signed.Sig)
			return nil
		},
	}
	tokenMintCmd.Flags().StringVar(&mintUID, "uid", "", "Principal ID a firmar")
	tokenMintCmd.Flags().DurationVar(&mintTTL, "ttl", 5*time.Minute, "Vida del token")

	// token verify
	var verTok, verSig, verUID string
	var verAt int64
	tokenVerifyCmd := &cobra.Command{
		Use:     "verify",
		Short:   "Verificar un par (token, sig) como lo haría un entry endpoint",
		PreRunE: needSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verTok == "" || verSig == "" {
				return fmt.Errorf("--token y --sig son requeridos")
			}
			p, err := token.Verify(verTok, verSig, []byte(secret))
			if err != nil {
				return err
			}
			if verUID != "" && !strings.EqualFold(p.PrincipalID, verUID) {
				return fmt.Errorf("uid no coincide: firmado=%s presentado=%s", p.PrincipalID, verUID)
			}
			at := verAt
			if at == 0 {
				at = time.Now().Unix()
			}
			if p.ExpiredAt(at) {
				return fmt.Errorf("token vencido: exp=%d now=%d", p.ExpiresAt, at)
			}
			if out == "json" {
				return printJSON(map[string]any{"uid": p.PrincipalID, "iat": p.IssuedAt, "exp": p.ExpiresAt})
			}
			fmt.Printf("ok uid=%s iat=%d exp=%d\n", p.PrincipalID, p.IssuedAt, p.ExpiresAt)
			return nil
		},
	}
	tokenVerifyCmd.Flags().StringVar(&verTok, "token", "", "Payload codificado")
	tokenVerifyCmd.Flags().StringVar(&verSig, "sig", "", "Firma codificada")
	tokenVerifyCmd.Flags().StringVar(&verUID, "uid", "", "Chequear match contra este uid (opcional)")
	tokenVerifyCmd.Flags().Int64Var(&verAt, "at", 0, "Evaluar expiración en este unix time (default: ahora)")

	tokenCmd := &cobra.Command{Use: "token", Short: "Operaciones sobre tokens firmados"}
	tokenCmd.AddCommand(tokenMintCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)

	// handoff mint: URL completa con nonce fresco
	var hoUID, hoTarget string
	var hoTTL time.Duration
	handoffMintCmd := &cobra.Command{
		Use:     "mint",
		Short:   "Acuñar un handoff URL completo (token + sig + uid + nonce)",
		PreRunE: needSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hoUID == "" {
				return fmt.Errorf("--uid es requerido")
			}
			if hoTarget == "" {
				return fmt.Errorf("--target es requerido")
			}
			b := &handoff.Builder{Secret: []byte(secret)}
			url, err := b.Build(hoUID, hoTarget, hoTTL)
			if err != nil {
				return err
			}
			if out == "json" {
				return printJSON(map[string]any{"url": url})
			}
			fmt.Println(url)
			return nil
		},
	}
	handoffMintCmd.Flags().StringVar(&hoUID, "uid", "", "Principal ID")
	handoffMintCmd.Flags().StringVar(&hoTarget, "target", "", "Base URL del servicio destino")
	handoffMintCmd.Flags().DurationVar(&hoTTL, "ttl", 5*time.Minute, "Vida del token")

	handoffCmd := &cobra.Command{Use: "handoff", Short: "Operaciones sobre handoff URLs"}
	handoffCmd.AddCommand(handoffMintCmd)

	// hashpw: PHC argon2id para el roster estático del gateway
	hashpwCmd := &cobra.Command{
		Use:   "hashpw",
		Short: "Hashear un password (argon2id PHC) para el directorio estático",
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) > 0 {
				plain = args[0]
			} else {
				fmt.Fprint(os.Stderr, "password: ")
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return err
				}
				plain = string(b)
			}
			phc, err := password.Hash(password.Default, plain)
			if err != nil {
				return err
			}
			fmt.Println(phc)
			return nil
		},
	}

	root.AddCommand(tokenCmd)
	root.AddCommand(handoffCmd)
	root.AddCommand(hashpwCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
