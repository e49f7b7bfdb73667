// Command seed fills a running API with demo users and listings.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/logger"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type dogData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var sampleDogs = []struct{ owner, name, description string }{
	{"alice", "Max", "Energetic golden retriever who loves fetch."},
	{"alice", "Luna", "Calm senior beagle, great with kids."},
	{"bob", "Charlie", "Curious terrier mix, house-trained."},
	{"bob", "Bella", "Shy greyhound looking for a quiet home."},
	{"carol", "Rocky", "Playful boxer puppy, needs training."},
}

// adoptions maps adopter to the listing name they claim.
var adoptions = []struct{ adopter, dog, message string }{
	{"bob", "Max", "Thank you for taking such good care of him!"},
	{"carol", "Charlie", "He already loves the garden."},
}

type seeder struct {
	client   *resty.Client
	password string
	log      *zap.Logger
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "API base URL")
	password := flag.String("password", "", "password for seeded users (prompted when empty and stdin is a terminal)")
	level := flag.String("l", "info", "logger level")
	flag.Parse()

	log, err := logger.New(*level, "development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	pw, err := resolvePassword(*password, int(os.Stdin.Fd()))
	if err != nil {
		log.Fatal("read password", zap.Error(err))
	}

	s := &seeder{
		client:   resty.New().SetBaseURL(*baseURL).SetTimeout(10 * time.Second),
		password: pw,
		log:      log,
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.run(ctx); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func resolvePassword(flagValue string, fd int) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if !term.IsTerminal(fd) {
		return "password123", nil
	}
	fmt.Print("Password for seeded users: ")
	b, err := readPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *seeder) run(ctx context.Context) error {
	tokens := map[string]string{}
	for _, name := range []string{"alice", "bob", "carol"} {
		token, err := s.account(ctx, name)
		if err != nil {
			return err
		}
		tokens[name] = token
	}

	ids := map[string]string{}
	for _, d := range sampleDogs {
		var out envelope[dogData]
		resp, err := s.client.R().SetContext(ctx).
			SetAuthToken(tokens[d.owner]).
			SetBody(map[string]string{"name": d.name, "description": d.description}).
			SetResult(&out).SetError(&out).
			Post("/api/dogs")
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusCreated {
			return fmt.Errorf("create %s: %s: %s", d.name, resp.Status(), out.Message)
		}
		ids[d.name] = out.Data.ID
		s.log.Info("dog registered", zap.String("name", d.name), zap.String("owner", d.owner))
	}

	for _, a := range adoptions {
		var out envelope[dogData]
		resp, err := s.client.R().SetContext(ctx).
			SetAuthToken(tokens[a.adopter]).
			SetBody(map[string]string{"thankYouMessage": a.message}).
			SetResult(&out).SetError(&out).
			Put("/api/dogs/" + ids[a.dog] + "/adopt")
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("adopt %s: %s: %s", a.dog, resp.Status(), out.Message)
		}
		s.log.Info("dog adopted", zap.String("name", a.dog), zap.String("adopter", a.adopter))
	}
	return nil
}

// account registers name, or logs in when it already exists.
func (s *seeder) account(ctx context.Context, name string) (string, error) {
	body := map[string]string{"username": name, "password": s.password}

	var out envelope[authData]
	resp, err := s.client.R().SetContext(ctx).SetBody(body).SetResult(&out).SetError(&out).Post("/api/auth/register")
	if err != nil {
		return "", err
	}
	switch resp.StatusCode() {
	case http.StatusCreated:
		s.log.Info("user registered", zap.String("username", name))
		return out.Data.Token, nil
	case http.StatusConflict:
	default:
		return "", fmt.Errorf("register %s: %s: %s", name, resp.Status(), out.Message)
	}

	out = envelope[authData]{}
	resp, err = s.client.R().SetContext(ctx).SetBody(body).SetResult(&out).SetError(&out).Post("/api/auth/login")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("login %s: %s: %s", name, resp.Status(), out.Message)
	}
	s.log.Info("user exists, logged in", zap.String("username", name))
	return out.Data.Token, nil
}
