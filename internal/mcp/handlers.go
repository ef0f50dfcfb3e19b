package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// Tool names
const (
	ToolSubmitIntake     = "submit_intake"
	ToolAskQuestion      = "ask_question"
	ToolGetPatientRecord = "get_patient_record"
)

// SubmitIntakeParams defines parameters for the submit_intake tool
type SubmitIntakeParams struct {
	Name           string `json:"name" jsonschema:"patient identifier"`
	Symptoms       string `json:"symptoms" jsonschema:"current symptoms"`
	MedicalHistory string `json:"medical_history,omitempty" jsonschema:"relevant medical history"`
	Exams          string `json:"exams,omitempty" jsonschema:"exam and imaging notes"`
}

// AskQuestionParams defines parameters for the ask_question tool
type AskQuestionParams struct {
	Name     string `json:"name" jsonschema:"patient identifier"`
	Question string `json:"question" jsonschema:"the patient's question"`
}

// GetPatientRecordParams defines parameters for the get_patient_record tool
type GetPatientRecordParams struct {
	Name string `json:"name" jsonschema:"patient identifier"`
}

func (s *Server) handleSubmitIntake(ctx context.Context, req *mcp.CallToolRequest, params SubmitIntakeParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolSubmitIntake).Info("Tool invoked")

	analysis, err := s.session.SubmitIntake(ctx, params.Name, params.Symptoms, params.MedicalHistory, params.Exams)
	if err != nil {
		return s.createErrorResult(ToolSubmitIntake, err), nil, nil
	}
	return textResult(analysis), nil, nil
}

func (s *Server) handleAskQuestion(ctx context.Context, req *mcp.CallToolRequest, params AskQuestionParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolAskQuestion).Info("Tool invoked")

	answer, err := s.session.SubmitChatTurn(ctx, params.Name, params.Question)
	if err != nil {
		return s.createErrorResult(ToolAskQuestion, err), nil, nil
	}
	return textResult(answer.Text), nil, nil
}

func (s *Server) handleGetPatientRecord(ctx context.Context, req *mcp.CallToolRequest, params GetPatientRecordParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGetPatientRecord).Info("Tool invoked")

	rec, err := s.session.GetDisplayRecord(ctx, params.Name)
	if err != nil {
		return s.createErrorResult(ToolGetPatientRecord, err), nil, nil
	}
	if rec == nil {
		return s.createErrorResult(ToolGetPatientRecord, domain.ErrPatientNotFound), nil, nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return s.createErrorResult(ToolGetPatientRecord, err), nil, nil
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// createErrorResult reports a failed workflow call as a tool error. Only
// validation and not-found messages reach the client verbatim.
func (s *Server) createErrorResult(tool string, err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)

	var message string
	switch code {
	case domain.ErrCodeValidation:
		message = err.Error()
	case domain.ErrCodeNotFound:
		message = "patient not found"
	case domain.ErrCodeDataCorruption:
		message = "case store is unreadable"
	case domain.ErrCodeGeneration:
		message = "generative backend unavailable"
	case domain.ErrCodeTimeout:
		message = "request timed out"
	default:
		message = "internal error"
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"tool": tool,
		"code": code,
	}).Warn("Tool call failed")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Error: %s - %s", code, message)},
		},
		IsError: true,
	}
}
