package tax

import (
	"fmt"
	"os"
	"strings"

	"workshop-billing-backend/internal/models"

	"gopkg.in/yaml.v3"
)

// Rule maps a case-insensitive description substring to a category.
type Rule struct {
	Keyword  string              `yaml:"keyword"`
	Category models.LineCategory `yaml:"category"`
}

// Classifier decides whether a line is billed as a product or a service.
// Rules are evaluated in order and the first match wins.
type Classifier struct {
	rules    []Rule
	fallback models.LineCategory
}

var serviceKeywords = []string{
	"servicio", "mantenimiento", "reparación", "diagnóstico", "alineación",
	"balanceo", "cambio", "revisión", "instalación", "montaje", "desmontaje",
	"limpieza", "ajuste", "calibración", "sincronización", "prueba", "test",
	"mano de obra", "labor", "trabajo", "inspección", "chequeo", "control",
	"evaluación", "análisis", "medición", "verificación",
}

var productKeywords = []string{
	"filtro", "aceite", "bujía", "pastilla", "disco", "neumático", "llanta",
	"batería", "amortiguador", "bomba", "correa", "manguera", "fusible",
	"bombillo", "lámpara", "sensor", "pieza", "repuesto", "kit", "juego",
	"refacción", "accesorio", "herramienta", "material", "lubricante",
	"aditivo", "freno", "embrague", "radiador", "alternador", "motor", "caja",
	"transmisión", "escape", "suspensión",
}

// DefaultRules is the shop vocabulary: service words first, then product
// words.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(serviceKeywords)+len(productKeywords))
	for _, k := range serviceKeywords {
		rules = append(rules, Rule{Keyword: k, Category: models.CategoryService})
	}
	for _, k := range productKeywords {
		rules = append(rules, Rule{Keyword: k, Category: models.CategoryProduct})
	}
	return rules
}

func NewClassifier(rules []Rule, fallback models.LineCategory) (*Classifier, error) {
	if fallback == "" {
		fallback = models.CategoryProduct
	}
	if !billable(fallback) {
		return nil, fmt.Errorf("default category must be PRODUCT or SERVICE, got %q", fallback)
	}

	normalized := make([]Rule, 0, len(rules))
	for i, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			return nil, fmt.Errorf("rule %d: empty keyword", i)
		}
		if !billable(r.Category) {
			return nil, fmt.Errorf("rule %d (%s): category must be PRODUCT or SERVICE, got %q", i, kw, r.Category)
		}
		normalized = append(normalized, Rule{Keyword: kw, Category: r.Category})
	}

	return &Classifier{rules: normalized, fallback: fallback}, nil
}

func DefaultClassifier() *Classifier {
	c, _ := NewClassifier(DefaultRules(), models.CategoryProduct)
	return c
}

type rulesFile struct {
	Default models.LineCategory `yaml:"default"`
	Rules   []Rule              `yaml:"rules"`
}

// LoadClassifier reads a YAML rule table:
//
//	default: PRODUCT
//	rules:
//	  - keyword: mano de obra
//	    category: SERVICE
func LoadClassifier(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier rules: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse classifier rules: %w", err)
	}
	return NewClassifier(f.Rules, f.Default)
}

// Classify resolves the billing category of a line. Any explicit tag is
// final, OTHER included. Untagged lines fall back to the catalog reference,
// then to the keyword rules.
func (c *Classifier) Classify(item models.LineItem) models.LineCategory {
	if item.Category != "" {
		return item.Category
	}
	if item.ProductID != nil {
		return models.CategoryProduct
	}
	if item.ServiceID != nil {
		return models.CategoryService
	}
	return c.ClassifyText(item.Description)
}

func (c *Classifier) ClassifyText(description string) models.LineCategory {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		if strings.Contains(desc, r.Keyword) {
			return r.Category
		}
	}
	return c.fallback
}

func billable(c models.LineCategory) bool {
	return c == models.CategoryProduct || c == models.CategoryService
}
