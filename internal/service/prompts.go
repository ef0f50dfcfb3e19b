package service

import (
	"fmt"
	"strings"

	"github.com/disc-herniation-assistant/internal/domain"
)

// instructionSuffix closes every generative prompt.
const instructionSuffix = "Baseado nas informações acima, como devemos proceder?"

// BuildIntakePrompt renders the one-shot analysis prompt.
func BuildIntakePrompt(intake domain.Intake) string {
	entry := fmt.Sprintf("Histórico Médico: %s\nSintomas: %s\nExames: %s",
		intake.MedicalHistory, intake.Symptoms, intake.ExamNotes)
	return withSuffix(entry)
}

// BuildChatPrompt renders the fallback prompt of a chat turn.
func BuildChatPrompt(cc domain.CaseContext, prior []domain.Interaction, question string) string {
	entry := fmt.Sprintf("Histórico Médico: %s\nSintomas: %s\nExames: %s\nMensagens anteriores: %s\nPergunta do usuário: %s",
		cc.MedicalHistory, cc.Symptoms, cc.ExamNotes, RenderTurns(prior), question)
	return withSuffix(entry)
}

// RenderTurns serializes prior turns in chronological order.
func RenderTurns(prior []domain.Interaction) string {
	lines := make([]string, 0, len(prior))
	for _, turn := range prior {
		lines = append(lines, fmt.Sprintf("Usuário: %s\nAssistente: %s", turn.Question, turn.Answer))
	}
	return strings.Join(lines, "\n")
}

func withSuffix(entry string) string {
	return entry + "\n" + instructionSuffix
}
