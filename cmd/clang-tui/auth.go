package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/validate"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account with an institutional email",
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	var email, password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := validate.Login(email, password); err != nil {
		return err
	}

	ctx, cancel := e.requestContext()
	defer cancel()
	u, err := e.client.Login(ctx, email, password)
	if err != nil {
		return errors.New(api.Message(err))
	}
	fmt.Printf("Logged in as %s (%s)\n", u.Username, u.Email)
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	domain := e.cfg.EmailDomain
	s := validate.Signup{Language: validate.Languages[0].Tag}

	who := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Full name").
				Value(&s.Username).
				Validate(func(name string) error {
					if strings.TrimSpace(name) == "" {
						return validate.ErrUsernameRequired
					}
					return nil
				}),
			huh.NewInput().
				Title("Email").
				Description("Must end with @"+domain).
				Value(&s.Email).
				Validate(func(email string) error {
					return validate.InstitutionEmail(email, domain)
				}),
		),
	)
	if err := who.Run(); err != nil {
		return fmt.Errorf("signup form: %w", err)
	}

	ctx, cancel := e.requestContext()
	err = e.client.SendCode(ctx, s.Email)
	cancel()
	if err != nil {
		return fmt.Errorf("send code: %s", api.Message(err))
	}
	fmt.Printf("A verification code was sent to %s\n", strings.TrimSpace(s.Email))

	var code string
	verify := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Verification code").
				Value(&code).
				Validate(validate.Code),
		),
	)
	if err := verify.Run(); err != nil {
		return fmt.Errorf("verification form: %w", err)
	}

	ctx, cancel = e.requestContext()
	err = e.client.VerifyCode(ctx, s.Email, code)
	cancel()
	if err != nil {
		return fmt.Errorf("verify code: %s", api.Message(err))
	}
	s.Verified = true

	langs := make([]huh.Option[string], len(validate.Languages))
	for i, l := range validate.Languages {
		langs[i] = huh.NewOption(l.Label, l.Tag)
	}
	secret := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				Description("6-15 characters, letters and numbers").
				EchoMode(huh.EchoModePassword).
				Value(&s.Password).
				Validate(validate.Password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&s.ConfirmPassword),
			huh.NewSelect[string]().
				Title("Language").
				Options(langs...).
				Value(&s.Language),
		),
	)
	if err := secret.Run(); err != nil {
		return fmt.Errorf("password form: %w", err)
	}
	if err := s.Check(domain); err != nil {
		return err
	}

	ctx, cancel = e.requestContext()
	defer cancel()
	err = e.client.Signup(ctx, api.SignupRequest{
		Username: s.Username,
		Email:    s.Email,
		Password: s.Password,
		Language: s.Language,
	})
	if err != nil {
		return fmt.Errorf("signup: %s", api.Message(err))
	}
	fmt.Println("Account created. Run `clang-tui login` to sign in.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.client.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := e.requestContext()
	defer cancel()
	u, err := e.client.Me(ctx)
	if errors.Is(err, api.ErrUnauthenticated) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return errors.New(api.Message(err))
	}

	fmt.Printf("%s <%s>\n", u.Username, u.Email)
	if u.Role != "" {
		fmt.Printf("Role:    %s\n", u.Role)
	}

	creds, err := e.store.Credentials()
	if err != nil || creds == nil {
		return err
	}
	info, err := api.InspectToken(creds.AccessToken)
	if err != nil {
		e.logger.Warn("inspect token", "err", err)
		return nil
	}
	fmt.Println(expiryLine(info, time.Now()))
	return nil
}

// expiryLine describes when the access token runs out.
func expiryLine(info api.TokenInfo, now time.Time) string {
	switch {
	case info.ExpiresAt.IsZero():
		return "Session: no expiry"
	case info.Expired(now):
		return "Session: access token expired, it will refresh on next use"
	default:
		return fmt.Sprintf("Session: expires %s (in %s)",
			info.ExpiresAt.Local().Format("2006-01-02 15:04"),
			info.ExpiresAt.Sub(now).Round(time.Minute))
	}
}
