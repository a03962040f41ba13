package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

const verifyCertificationSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["certificate_number"],
  "properties": {
    "certificate_number": {"type": "string", "minLength": 1}
  }
}`

const qualityInspectionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["product_query"],
  "properties": {
    "product_query": {"type": "string", "minLength": 1}
  }
}`

const qualityIssueSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["transaction_id", "description"],
  "properties": {
    "transaction_id": {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "severity": {"type": "string", "enum": ["low", "medium", "high"]}
  }
}`

// QualityConfig è il catalogo dell'agente qualità
func QualityConfig() Config {
	return Config{
		Name:        "quality_assurance",
		Role:        "quality inspector",
		Description: "Verifies certifications, inspects product quality and handles quality complaints.",
		Catalog: Catalog{
			Default: "verify_certification",
			Actions: []ActionSpec{
				{
					Name:        "verify_certification",
					Description: "Verify a certification by its certificate number",
					Schema:      verifyCertificationSchema,
					Keywords:    []string{"certification", "certificate", "verify", "organic cert"},
					Handler:     handleVerifyCertification,
				},
				{
					Name:        "quality_inspection",
					Description: "Review the quality profile of a listed product",
					Schema:      qualityInspectionSchema,
					Keywords:    []string{"inspect", "quality check", "standards of"},
					Handler:     handleQualityInspection,
				},
				{
					Name:        "manage_standards",
					Description: "Explain the quality standards that apply to a product category",
					Keywords:    []string{"standard", "regulation", "requirements for", "compliance"},
					Handler:     handleManageStandards,
				},
				{
					Name:        "handle_quality_issues",
					Description: "Open a quality complaint against an order",
					Schema:      qualityIssueSchema,
					Keywords:    []string{"complaint", "defective", "spoiled", "quality issue", "damaged"},
					Handler:     handleQualityIssue,
				},
			},
		},
	}
}

func handleVerifyCertification(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	number := strings.ToUpper(fieldString(fields, "certificate_number"))

	cert, err := rt.Store.GetCertificationByNumber(ctx, number)
	if err != nil {
		return failureOutcome(fmt.Sprintf("No certification with number %s is on file.", number))
	}

	if cert.Expired(time.Now()) {
		return failureOutcome(fmt.Sprintf("Certificate %s (%s by %s) expired on %s.",
			cert.CertificateNumber, cert.Type, cert.CertifyingBody,
			cert.ExpiryDate.Format("2 January 2006")))
	}

	var content string
	switch cert.VerificationStatus {
	case models.VerificationStatusVerified:
		content = fmt.Sprintf("✅ Certificate %s is valid: %s issued by %s, expires %s.",
			cert.CertificateNumber, cert.Type, cert.CertifyingBody,
			cert.ExpiryDate.Format("2 January 2006"))
	case models.VerificationStatusRejected:
		return failureOutcome(fmt.Sprintf("Certificate %s was rejected during verification.", cert.CertificateNumber))
	default:
		content = fmt.Sprintf("⏳ Certificate %s (%s by %s) is still pending verification.",
			cert.CertificateNumber, cert.Type, cert.CertifyingBody)
	}

	return successOutcome(content, map[string]any{
		"certificate_number":  cert.CertificateNumber,
		"type":                cert.Type,
		"verification_status": string(cert.VerificationStatus),
	})
}

func handleQualityInspection(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	query := fieldString(fields, "product_query")

	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Query: query, Limit: 1})
	if err != nil {
		return errorOutcome("I could not look up the product: %v", err)
	}
	if len(products) == 0 {
		return failureOutcome(fmt.Sprintf("I couldn't find any product matching %q.", query))
	}
	product := products[0]

	certs, err := rt.Store.GetCertificationsForHolder(ctx, product.ProducerID)
	if err != nil {
		return errorOutcome("I could not fetch the producer's certifications: %v", err)
	}
	var valid []string
	now := time.Now()
	for _, c := range certs {
		if c.VerificationStatus == models.VerificationStatusVerified && !c.Expired(now) {
			valid = append(valid, c.Type)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔬 %s by %s:", product.Name, producerName(product))
	if product.OrganicCertified {
		sb.WriteString(" listed as organic,")
	}
	if len(valid) > 0 {
		fmt.Fprintf(&sb, " producer holds verified certifications: %s.", strings.Join(valid, ", "))
	} else {
		sb.WriteString(" producer has no verified certifications on file.")
	}

	return successOutcome(sb.String(), map[string]any{
		"product_id":     product.ID.String(),
		"certifications": valid,
	})
}

func handleManageStandards(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	reply, err := rt.Registry.Invoke(ctx, providers.TaskAnalysis, []providers.Message{
		providers.SystemMessage("You are a food quality expert for the European agricultural market. " +
			"Explain briefly which quality standards and certifications apply to the category the user asks about " +
			"(for example EU organic, HACCP, GlobalGAP)."),
		providers.UserMessage(req.Message),
	})
	if err != nil {
		return errorOutcome("I could not look up the standards right now: %v", err)
	}
	return successOutcome(reply.Content, nil)
}

func handleQualityIssue(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to open a complaint. Please sign in first.")
	}

	rawID := fieldString(fields, "transaction_id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return failureOutcome(fmt.Sprintf("%q does not look like an order id.", rawID))
	}
	tx, err := rt.Store.GetTransactionByID(ctx, id)
	if err != nil {
		return failureOutcome(fmt.Sprintf("I could not find order %s.", rawID))
	}
	if tx.BuyerID != user.ID && tx.SellerID != user.ID {
		return failureOutcome("You can only open complaints on your own orders.")
	}

	severity := fieldString(fields, "severity")
	if severity == "" {
		severity = "medium"
	}
	description := fieldString(fields, "description")

	counterparty := tx.SellerID
	if user.ID == tx.SellerID {
		counterparty = tx.BuyerID
	}
	rt.Notifier.Notify(ctx, counterparty, models.NotificationQuality,
		"Quality complaint opened",
		fmt.Sprintf("%s reported a %s severity quality issue on order %s: %s",
			user.Name, severity, shortID(tx.ID), description),
		map[string]any{"transaction_id": tx.ID.String(), "severity": severity})

	// La segnalazione passa comunque dalla revisione umana
	content := fmt.Sprintf("📋 Quality issue recorded on order %s (severity %s). The counterparty has been notified and the case will be reviewed.",
		shortID(tx.ID), severity)

	return successOutcome(content, map[string]any{
		"transaction_id": tx.ID.String(),
		"severity":       severity,
	})
}

func producerName(p models.Product) string {
	if p.Producer != nil {
		return p.Producer.Name
	}
	return "producer " + shortID(p.ProducerID)
}
