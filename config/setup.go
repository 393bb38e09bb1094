package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

var (
	telegramAPIBaseURL = "https://api.telegram.org"
	geminiAPIBaseURL   = "https://generativelanguage.googleapis.com"
)

const defaultSetupHTTPAddr = ":8080"

var (
	validationClient = resty.New().SetTimeout(10 * time.Second)

	errConnection = errors.New("connection failed - check your internet")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).MarginBottom(1)
	savedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// IsInteractiveTerminal reports whether both stdin and stdout are TTYs, i.e.
// whether the setup wizard can run.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// setupAnswers holds what the wizard asks for.
type setupAnswers struct {
	BotToken  string
	GeminiKey string
	AdminID   string
	EnableAPI bool
}

// env turns the answers into config file entries. A fresh JWT secret is
// generated every time.
func (a setupAnswers) env() map[string]string {
	values := map[string]string{
		"BOT_TOKEN":         a.BotToken,
		"GEMINI_API_KEY":    a.GeminiKey,
		"ADMIN_TELEGRAM_ID": a.AdminID,
		"JWT_SECRET_KEY":    generateSecret(),
	}
	if a.EnableAPI {
		values["HTTP_ADDR"] = defaultSetupHTTPAddr
	}
	return values
}

func setupForm(a *setupAnswers) *huh.Form {
	required := func(what string, check func(string) error) func(string) error {
		return func(s string) error {
			if s == "" {
				return fmt.Errorf("%s is required", what)
			}
			return check(s)
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&a.BotToken).
				Validate(required("token", validateTelegramToken)),
			huh.NewInput().
				Title("Gemini API Key").
				Description("Used to recognize food in photos: https://aistudio.google.com/apikey").
				Value(&a.GeminiKey).
				Validate(required("API key", validateGeminiKey)),
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("You become the bot admin. Ask @userinfobot for your ID").
				Value(&a.AdminID).
				Validate(validateTelegramID),
			huh.NewConfirm().
				Title("Also serve the HTTP API on " + defaultSetupHTTPAddr + "?").
				Value(&a.EnableAPI),
		),
	).WithTheme(huh.ThemeBase16())
}

// RunSetupWizard asks for the settings needed to run the bot with Gemini,
// saves them to the user config file and exports them to this process.
// It returns false when setup was cancelled or failed.
func RunSetupWizard() bool {
	fmt.Println()
	fmt.Println(headerStyle.Render("🥫 SnapShelf setup"))

	var answers setupAnswers
	if err := setupForm(&answers).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
		} else {
			fmt.Printf("\nError: %v\n", err)
		}
		return false
	}

	values := answers.env()
	configPath, err := saveEnvFile(values)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}
	for k, v := range values {
		os.Setenv(k, v)
	}

	fmt.Println()
	fmt.Println(savedStyle.Render("✓ Configuration saved"))
	fmt.Println(dimStyle.Render("  " + configPath))
	fmt.Println()
	return true
}

func validateTelegramID(s string) error {
	if s == "" {
		return errors.New("user ID is required")
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

func generateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("snapshelf-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// fetchJSON GETs endpoint and decodes the JSON body into out for both success and
// error statuses. Transport failures become errConnection.
func fetchJSON(endpoint string, out any) (int, error) {
	res, err := validationClient.R().
		SetResult(out).
		SetError(out).
		Get(endpoint)
	if err != nil {
		log.Debug().Err(err).Msg("setup validation request failed")
		return 0, errConnection
	}
	return res.StatusCode(), nil
}

// validateTelegramToken checks a bot token with the getMe method.
func validateTelegramToken(token string) error {
	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if _, err := fetchJSON(fmt.Sprintf("%s/bot%s/getMe", telegramAPIBaseURL, token), &body); err != nil {
		return err
	}

	switch {
	case body.OK:
		return nil
	case body.Description != "":
		return errors.New(body.Description)
	default:
		return errors.New("token rejected by Telegram")
	}
}

// validateGeminiKey checks an API key by listing models.
func validateGeminiKey(key string) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	status, err := fetchJSON(geminiAPIBaseURL+"/v1beta/models?"+url.Values{"key": {key}}.Encode(), &body)
	if err != nil {
		return err
	}

	switch status {
	case 200:
		return nil
	case 400, 401, 403:
		if body.Error.Message != "" {
			return errors.New(body.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", status)
	default:
		return fmt.Errorf("unexpected response (HTTP %d)", status)
	}
}

// saveEnvFile writes values to the user config file, readable only by the
// owner since it holds secrets. It returns the file path.
func saveEnvFile(values map[string]string) (string, error) {
	configPath, err := ConfigFilePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := godotenv.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(configPath, 0600); err != nil {
		return "", fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return configPath, nil
}

// WaitOnWindows pauses so the console window stays open long enough to read
// errors.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// FatalWithWait logs an error, pauses on Windows and exits.
func FatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	WaitOnWindows()
	os.Exit(1)
}
