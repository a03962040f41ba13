package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/rs/zerolog/log"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// extractor estrae parametri strutturati dai messaggi utente e li
// valida contro gli schemi del catalogo. Gli schemi vengono compilati
// una volta alla costruzione dell'agente.
type extractor struct {
	agent   string
	schemas map[string]*jsonschema.Schema
}

func newExtractor(agent string, catalog Catalog) (*extractor, error) {
	schemas := make(map[string]*jsonschema.Schema)

	for _, spec := range catalog.Actions {
		if spec.Schema == "" {
			continue
		}

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(spec.Schema))
		if err != nil {
			return nil, fmt.Errorf("action %s: unmarshal schema: %w", spec.Name, err)
		}

		url := fmt.Sprintf("agriconnect://schemas/%s/%s.json", agent, spec.Name)
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("action %s: add schema resource: %w", spec.Name, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("action %s: compile schema: %w", spec.Name, err)
		}
		schemas[spec.Name] = compiled
	}

	return &extractor{agent: agent, schemas: schemas}, nil
}

// extract chiede al provider i parametri dell'azione come JSON e li
// valida. Il terzo valore è false quando l'estrazione è fallita: in quel
// caso il secondo valore è l'Outcome correttivo da restituire.
func (e *extractor) extract(ctx context.Context, registry *providers.Registry, spec ActionSpec, message string) (map[string]any, Outcome, bool) {
	system := fmt.Sprintf(
		"Extract the parameters for the %s action from the user message.\n"+
			"Respond with only a JSON object valid against this schema, no prose:\n%s",
		spec.Name, spec.Schema)

	reply, err := registry.Invoke(ctx, providers.TaskGeneration, []providers.Message{
		providers.SystemMessage(system),
		providers.UserMessage(message),
	})
	if err != nil {
		return nil, errorOutcome("I could not reach the language providers to read your request. Please try again."), false
	}

	fields, parseErr := parseJSONObject(reply.Content)
	if parseErr != nil {
		// Un solo retry di chiarimento, condiviso da tutte le azioni
		log.Debug().
			Err(parseErr).
			Str("agent", e.agent).
			Str("action", spec.Name).
			Msg("Extraction reply not parseable, retrying once")

		reply, err = registry.Invoke(ctx, providers.TaskGeneration, []providers.Message{
			providers.SystemMessage(system),
			providers.UserMessage(message),
			providers.Message{Role: "assistant", Content: reply.Content},
			providers.UserMessage("That was not valid JSON. Respond with only the JSON object."),
		})
		if err != nil {
			return nil, errorOutcome("I could not reach the language providers to read your request. Please try again."), false
		}
		fields, parseErr = parseJSONObject(reply.Content)
	}
	if parseErr != nil {
		out := failureOutcome(fmt.Sprintf(
			"I couldn't work out the details for %s from your message. Could you rephrase it with the specifics?",
			strings.ReplaceAll(spec.Name, "_", " ")))
		out.Data = map[string]any{"error": fmt.Sprintf("%v: %v", ErrExtractionParse, parseErr)}
		return nil, out, false
	}

	if schema, ok := e.schemas[spec.Name]; ok {
		if err := validateFields(schema, fields); err != nil {
			out := failureOutcome(fmt.Sprintf(
				"Some details for %s are missing or invalid: %v. Please correct them and try again.",
				strings.ReplaceAll(spec.Name, "_", " "), err))
			out.Data = map[string]any{"error": fmt.Sprintf("%v: %v", ErrValidation, err)}
			return nil, out, false
		}
	}

	return fields, Outcome{}, true
}

// validateFields valida i campi estratti contro lo schema compilato
func validateFields(schema *jsonschema.Schema, fields map[string]any) error {
	// Round trip JSON per ottenere i tipi che il validatore si aspetta
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// parseJSONObject interpreta la risposta del provider come oggetto
// JSON, tollerando code fence e testo intorno
func parseJSONObject(content string) (map[string]any, error) {
	trimmed := strings.TrimSpace(content)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	// Isola il primo oggetto quando il modello aggiunge prosa
	if !strings.HasPrefix(trimmed, "{") {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in reply")
		}
		trimmed = trimmed[start : end+1]
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
