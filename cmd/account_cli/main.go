package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"account-lifecycle/internal/config"
	"account-lifecycle/internal/db"
	"account-lifecycle/internal/repository"
	"account-lifecycle/internal/service"
)

// consoleNotifier imprime los correos en la terminal en lugar de enviarlos.
type consoleNotifier struct{}

func (consoleNotifier) Notify(to, subject, htmlBody string) {
	fmt.Printf("\n--- Email para %s: %s ---\n%s\n", to, subject, htmlBody)
}

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrar: %v", err)
		}
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	accounts := service.NewAccountService(
		logger,
		repository.NewPgUserRepository(pool),
		repository.NewPgVerificationCodeRepository(pool),
		service.NewBcryptHasher(cfg.BcryptCost),
		service.NewCodeGenerator(),
		jwtSvc,
		consoleNotifier{},
		service.NewRequestLimiter(cfg.ResetRateWindow, cfg.ResetRateLimit),
		service.AccountOptions{
			BaseURL:              cfg.AppBaseURL,
			VerifyCodeTTL:        cfg.VerifyCodeTTL,
			ResetCodeTTL:         cfg.ResetCodeTTL,
			RequireVerifiedLogin: cfg.RequireVerifiedLogin,
		},
	)

	for {
		fmt.Println("\n===== Cuentas =====")
		fmt.Println("[1] Registrar")
		fmt.Println("[2] Verificar email")
		fmt.Println("[3] Login")
		fmt.Println("[4] Pedir reset de contraseña")
		fmt.Println("[5] Confirmar reset de contraseña")
		fmt.Println("[6] Reenviar verificación")
		fmt.Println("[7] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, _ := reader.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			if err := registerFlow(ctx, reader, accounts); err != nil {
				fmt.Printf("Error registrando: %v\n", err)
			}
		case "2":
			code := prompt(reader, "Codigo: ")
			user, err := accounts.VerifyEmail(ctx, code)
			if err != nil {
				fmt.Printf("Error verificando: %v\n", err)
				continue
			}
			fmt.Printf("Cuenta %s verificada.\n", user.Email)
		case "3":
			if err := loginFlow(ctx, reader, accounts, jwtSvc); err != nil {
				fmt.Printf("Error en login: %v\n", err)
			}
		case "4":
			emailAddr := prompt(reader, "Email: ")
			if _, err := accounts.RequestPasswordReset(ctx, emailAddr, ""); err != nil {
				fmt.Printf("Error pidiendo reset: %v\n", err)
				continue
			}
			fmt.Println("Correo de reset enviado.")
		case "5":
			code := prompt(reader, "Codigo: ")
			password := prompt(reader, "Nueva contraseña: ")
			user, err := accounts.ConfirmPasswordReset(ctx, code, password)
			if err != nil {
				fmt.Printf("Error confirmando reset: %v\n", err)
				continue
			}
			fmt.Printf("Contraseña de %s actualizada.\n", user.Email)
		case "6":
			emailAddr := prompt(reader, "Email: ")
			if _, err := accounts.ResendVerification(ctx, emailAddr, ""); err != nil {
				fmt.Printf("Error reenviando verificación: %v\n", err)
				continue
			}
			fmt.Println("Correo de verificación reenviado.")
		case "7":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func registerFlow(ctx context.Context, reader *bufio.Reader, accounts *service.AccountService) error {
	input := service.RegisterInput{
		Email:     prompt(reader, "Email: "),
		Password:  prompt(reader, "Contraseña: "),
		FirstName: prompt(reader, "Nombre: "),
		LastName:  prompt(reader, "Apellido (opcional): "),
		Country:   prompt(reader, "Pais (opcional): "),
	}
	user, err := accounts.Register(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("Usuario creado (ID: %s). Revisa el correo impreso arriba.\n", user.ID)
	return nil
}

func loginFlow(ctx context.Context, reader *bufio.Reader, accounts *service.AccountService, jwtSvc *service.JWTService) error {
	emailAddr := prompt(reader, "Email: ")
	password := prompt(reader, "Contraseña: ")
	result, err := accounts.Login(ctx, emailAddr, password)
	if err != nil {
		return err
	}
	claims, err := jwtSvc.Parse(result.Token.AccessToken)
	if err != nil {
		return fmt.Errorf("token emitido invalido: %w", err)
	}
	fmt.Printf("Hola %s. Token (%s, vence %s):\n%s\n",
		claims.FirstName, result.Token.TokenType, result.Token.ExpiresAt.Format("2006-01-02 15:04"), result.Token.AccessToken)
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}
