package controllers

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/database"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/documents"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

var (
	documentService *documents.Service
	documentOnce    sync.Once
)

func getDocumentService() *documents.Service {
	documentOnce.Do(func() {
		documentService = documents.NewService(database.GetDB())
	})
	return documentService
}

// HandleDocumentGenerate renders one compliance document from the submitted
// questionnaire fields.
func HandleDocumentGenerate(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	kind := strings.TrimSpace(c.FormValue("kind"))

	if !documents.IsKind(kind) {
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "סוג מסמך לא מוכר",
		}).Redirect("/documents")
	}

	org, err := repository.GetGlobalRepositories().Organization.GetByOwner(uc.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "יש להשלים את שאלון ההצטרפות תחילה",
		}).Redirect("/onboarding")
	}

	answers := documents.Answers{
		OrgName:        org.Name,
		BusinessID:     org.BusinessID,
		Industry:       org.Industry,
		DPOName:        strings.TrimSpace(c.FormValue("dpo_name")),
		DPOEmail:       strings.TrimSpace(c.FormValue("dpo_email")),
		DataCategories: splitListField(c.FormValue("data_categories")),
		Purposes:       splitListField(c.FormValue("purposes")),
		Recipients:     splitListField(c.FormValue("recipients")),
		RetentionYears: 7,
	}
	if v := strings.TrimSpace(c.FormValue("retention_years")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			answers.RetentionYears = n
		}
	}

	doc, err := getDocumentService().GenerateForOrg(c.Context(), org, uc.UserID, kind, answers)
	if err != nil {
		if errors.Is(err, documents.ErrQuotaExceeded) {
			return flash.WithError(c, fiber.Map{
				"type":    "error",
				"message": "מכסת המסמכים לחודש זה נוצלה",
			}).Redirect("/documents")
		}
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "הפקת המסמך נכשלה",
		}).Redirect("/documents")
	}

	return c.Redirect("/documents/"+doc.UUID, fiber.StatusSeeOther)
}

// HandleDocumentList shows all generated documents of the organization.
func HandleDocumentList(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	data := fiber.Map{
		"Title":     "מסמכים",
		"Kinds":     documents.Kinds(),
		"Flash":     flash.Get(c),
		"CSRFToken": csrfToken(c),
	}

	org, err := repos.Organization.GetByOwner(uc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			data["HasOrganization"] = false
			return c.Render("documents/index", data, "layouts/main")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load organization")
	}

	docs, err := repos.Document.ListByOrg(org.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load documents")
	}

	data["HasOrganization"] = true
	data["Documents"] = docs
	return c.Render("documents/index", data, "layouts/main")
}

// HandleDocumentView renders one generated document.
func HandleDocumentView(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	org, err := repos.Organization.GetByOwner(uc.UserID)
	if err != nil {
		return c.Redirect("/documents", fiber.StatusSeeOther)
	}

	doc, err := repos.Document.GetByUUID(org.ID, c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "document not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load document")
	}

	return c.Render("documents/view", fiber.Map{
		"Title":    doc.Title,
		"Document": doc,
	}, "layouts/main")
}

func splitListField(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
