package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"travel-assistant/handler"
	"travel-assistant/internal/aggregate"
	"travel-assistant/internal/conversation"
	"travel-assistant/internal/integrations/decisionagent"
	"travel-assistant/internal/integrations/gemini"
	"travel-assistant/internal/integrations/geocoder"
	"travel-assistant/internal/integrations/paramstore"
	"travel-assistant/internal/integrations/weather"
	"travel-assistant/internal/stream"
	"travel-assistant/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	decisionAgentURL := os.Getenv("DECISION_AGENT_URL")
	geminiModel := os.Getenv("GEMINI_MODEL")
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 500)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	geocodeClient, err := geocoder.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create geocoder client", "err", err)
		os.Exit(1)
	}

	var geminiOpts []gemini.Option
	if geminiModel != "" {
		geminiOpts = append(geminiOpts, gemini.WithModel(geminiModel))
	}
	geminiClient, err := gemini.NewClient(ssmClient, paramPrefix, geminiOpts...)
	if err != nil {
		slog.Error("failed to create gemini client", "err", err)
		os.Exit(1)
	}

	var agentOpts []decisionagent.Option
	if decisionAgentURL != "" {
		agentOpts = append(agentOpts, decisionagent.WithBaseURL(decisionAgentURL))
	}
	agentClient := decisionagent.NewClient(agentOpts...)

	aggregator, err := aggregate.New(geocodeClient, agentClient, weather.NewStubProvider())
	if err != nil {
		slog.Error("failed to create aggregator", "err", err)
		os.Exit(1)
	}

	// The welcome message is overridable without a redeploy.
	welcome, err := ssmClient.GetParameterOrDefault(ctx,
		strings.TrimRight(paramPrefix, "/")+"/welcome-message", conversation.DefaultWelcomeText)
	if err != nil {
		slog.Error("failed to load welcome message", "err", err)
		os.Exit(1)
	}
	store := conversation.New(conversation.WithWelcomeText(welcome))

	// ---- Handler ----
	chatService, err := usecase.NewChatService(store, aggregator, geminiClient, stream.NewRevealer(), maxMessageLen)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
