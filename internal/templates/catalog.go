// Package templates holds the fixed catalog of prompt templates and the rule
// for applying one to an existing record.
package templates

import (
	"slices"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

// Template is a named, read-only prompt skeleton.
// Empty strings and nil Tags in Values mean "not defined by this template".
type Template struct {
	Label  string
	Values domain.StructuredPrompt
}

// catalog is in authoring order; menus render it as-is.
var catalog = []Template{
	{
		Label: "Analyse de texte",
		Values: domain.StructuredPrompt{
			Title:       "Analyse structurée d'un texte",
			Description: "Utilisez cette structure pour analyser un texte selon le cadre CROSTAR et fournir des insights détaillés.",
			Contexte:    "Tu reçois un texte issu d'un rapport d'entreprise décrivant les performances du dernier trimestre.",
			Role:        "Tu es un analyste d'intelligence économique avec une forte expertise en stratégie.",
			Objectif:    "Identifier les signaux faibles, opportunités et risques contenus dans le texte fourni.",
			Style:       "Structure ton analyse en sections claires, avec titres et bullet points pour chaque partie.",
			Ton:         "Professionnel, factuel et synthétique.",
			Audience:    "Direction générale et comité de pilotage stratégique qui disposeront de peu de temps pour lire l'analyse.",
			Resultat:    "Une synthèse en trois parties : 1) tendances clés, 2) risques, 3) recommandations concrètes.",
			ModeleCible: "GPT-5",
			Langue:      "fr",
			Tags:        []string{"analyse", "stratégie"},
		},
	},
	{
		Label: "Génération de script vidéo",
		Values: domain.StructuredPrompt{
			Title:       "Script vidéo marketing",
			Description: "Structure de prompt pour générer un script vidéo convaincant en format court.",
			Contexte:    "Tu dois créer un script pour une vidéo de 90 secondes présentant un nouveau produit SaaS pour PME.",
			Role:        "Tu es un copywriter expert en storytelling vidéo.",
			Objectif:    "Produire un script découpé en scènes avec dialogues et indications visuelles.",
			Style:       "Narration dynamique, phrases courtes, impact émotionnel fort.",
			Ton:         "Énergique, inspirant et orienté vers l'action.",
			Audience:    "Dirigeants de PME technophiles à la recherche de solutions digitales innovantes.",
			Resultat:    "Un script structuré en 4 parties : accroche, problème, solution, call-to-action.",
			ModeleCible: "Claude",
			Langue:      "fr",
			Tags:        []string{"marketing", "video"},
		},
	},
	{
		Label: "Analyse d'entretien de vente",
		Values: domain.StructuredPrompt{
			Title:       "Analyse d'entretien commercial",
			Description: "Prompt pour débriefer un entretien de vente et identifier les axes d'amélioration.",
			Contexte:    "Tu disposes de la transcription d'un entretien de vente B2B dans le secteur SaaS.",
			Role:        "Tu es un coach commercial senior spécialisé en ventes complexes.",
			Objectif:    "Dresser le bilan de l'entretien, identifier les signaux d'achat et proposer un plan d'action.",
			Style:       "Analyse structurée avec sections numérotées.",
			Ton:         "Constructif, orienté amélioration continue.",
			Audience:    "L'équipe commerciale et le manager de compte.",
			Resultat:    "Un rapport en trois parties : Résumé, Points forts/Faiblesses, Recommandations actionnables.",
			ModeleCible: "GPT-4",
			Langue:      "fr",
			Tags:        []string{"vente", "analyse"},
		},
	},
	{
		Label: "Plan de formation",
		Values: domain.StructuredPrompt{
			Title:       "Création de plan de formation",
			Description: "Prompt pour concevoir un plan de formation complet et progressif.",
			Contexte:    "Tu dois élaborer un plan de formation sur 6 semaines pour former des chefs de projet à l'agilité.",
			Role:        "Tu es un formateur expert en pédagogie active.",
			Objectif:    "Construire un plan détaillé avec objectifs pédagogiques, activités et livrables.",
			Style:       "Tableau ou liste structurée par semaine.",
			Ton:         "Engageant, motivant mais réaliste.",
			Audience:    "Chefs de projet expérimentés dans les organisations publiques.",
			Resultat:    "Un plan avec objectifs, contenus, modalités d'animation et évaluations pour chaque module.",
			ModeleCible: "Mistral Large",
			Langue:      "fr",
			Tags:        []string{"formation", "pédagogie"},
		},
	},
}

// List returns every template in catalog order. The result is a copy.
func List() []Template {
	out := make([]Template, len(catalog))
	for i, t := range catalog {
		out[i] = t.clone()
	}

	return out
}

// Labels returns the template labels in catalog order.
func Labels() []string {
	out := make([]string, len(catalog))
	for i, t := range catalog {
		out[i] = t.Label
	}

	return out
}

// Get returns the template with the given label.
func Get(label string) (Template, error) {
	i := slices.IndexFunc(catalog, func(t Template) bool { return t.Label == label })
	if i < 0 {
		return Template{}, domain.NewNotFoundError("template", label)
	}

	return catalog[i].clone(), nil
}

func (t Template) clone() Template {
	return Template{Label: t.Label, Values: t.Values.Clone()}
}
