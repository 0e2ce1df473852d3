package main

import (
	"fmt"
	"log"

	"github.com/loanintake/intake-engine/internal/agent"
	"github.com/loanintake/intake-engine/internal/config"
	"github.com/loanintake/intake-engine/internal/llm/openai"
	"github.com/loanintake/intake-engine/internal/orchestrator"
	"github.com/loanintake/intake-engine/internal/persona"
	"github.com/loanintake/intake-engine/internal/toolhub"
	"github.com/loanintake/intake-engine/internal/web"
)

func main() {
	// Load .env file
	config.LoadEnv()
	cfg := config.Load()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║       Loan Intake Engine             ║")
	fmt.Println("║   Conversational Assessment · Go     ║")
	fmt.Println("╚══════════════════════════════════════╝")

	// Initialize LLM client
	llmClient, err := openai.NewClientFromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to initialize LLM client: %v", err)
	}
	fmt.Printf("🤖 LLM: %s\n", llmClient.Name())

	// Load personas. The coordinator's absence is fatal regardless of the
	// tolerate flag; the specialists fall back to a generic persona only
	// when PERSONA_TOLERATE_MISSING=true.
	personas := persona.NewPersonaSet(cfg.PersonasDir, cfg.PersonaTolerateMissing)
	coordinatorText, err := personas.Load(persona.Coordinator)
	if err != nil {
		log.Fatalf("❌ Coordinator persona is required: %v", err)
	}
	specialistText := func(key string) string {
		text, err := personas.Load(key)
		if err != nil {
			log.Fatalf("❌ Failed to load %s persona: %v", key, err)
		}
		return text
	}

	// Tool-server endpoints: env vars override the optional YAML file.
	endpoints, err := persona.LoadToolEndpoints(cfg.ToolServersFile)
	if err != nil {
		log.Fatalf("❌ Failed to load tool-server config: %v", err)
	}

	// The five agents.
	coordinator := agent.NewCoordinatorAgent(coordinatorText, llmClient)
	pipeline := &orchestrator.Pipeline{
		Intake: agent.NewIntakeValidator(specialistText(persona.Intake), llmClient),
		Credit: agent.NewCreditEstimator(specialistText(persona.Credit), llmClient),
		Income: agent.NewIncomeAssessor(specialistText(persona.Income), llmClient),
		Risk:   agent.NewRiskDecider(specialistText(persona.Risk), llmClient),
		Tools:  endpoints,
		Open:   toolhub.Open,
	}

	// Session store with background idle eviction.
	store := orchestrator.NewStore(cfg.SessionTimeout, cfg.SessionCleanupInterval)
	store.Start()
	defer store.Stop()
	fmt.Printf("🗂  Sessions: %v idle timeout, sweep every %v\n", cfg.SessionTimeout, cfg.SessionCleanupInterval)

	service := &orchestrator.Service{
		Engine:   &orchestrator.CoordinatorEngine{Store: store, Coordinator: coordinator},
		Pipeline: pipeline,
	}

	health := web.HealthInfo{
		Workflow:       func() bool { return true },
		SessionManager: func() bool { return true },
		Framework:      func() bool { return true },
	}

	server := web.NewServer(
		web.NewChatHandler(service),
		web.NewSessionsHandler(service),
		health,
		cfg.CORSOrigins,
	)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
