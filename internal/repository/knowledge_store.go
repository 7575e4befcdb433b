package repository

import (
	"context"

	"faqbot/internal/models"
)

// KnowledgeStore loads and persists the whole knowledge base document.
type KnowledgeStore interface {
	Load(ctx context.Context) (*models.KnowledgeBase, error)
	Save(ctx context.Context, kb *models.KnowledgeBase) error
}

// DefaultKnowledgeBase is the minimal knowledge base written when none exists yet.
func DefaultKnowledgeBase() *models.KnowledgeBase {
	kb := models.NewKnowledgeBase()
	kb.Categories.Put(&models.Entry{
		ID:       "creation_entreprise",
		Name:     "Création d'entreprise",
		Keywords: []string{"création", "entreprise", "société", "statuts", "immatriculation"},
		Examples: models.Examples{
			Questions: []string{
				"comment créer une entreprise",
				"je veux créer ma société",
				"publier un avis de constitution",
			},
			Variations: []string{"création de société", "immatriculer une entreprise"},
		},
		Responses: []models.Response{
			{Content: "Pour créer une entreprise, vous devez publier un avis de constitution dans un journal d'annonces légales."},
			{Content: "La publication doit contenir : dénomination sociale, forme juridique, capital, siège social, objet social, durée, gérant."},
		},
	})
	kb.Categories.Put(&models.Entry{
		ID:       "modification_statuts",
		Name:     "Modification des statuts",
		Keywords: []string{"modification", "statuts", "changement", "adresse", "capital"},
		Examples: models.Examples{
			Questions: []string{
				"comment modifier les statuts",
				"changer l'adresse du siège social",
				"augmentation de capital",
			},
			Variations: []string{"transfert de siège", "changement de gérant"},
		},
		Responses: []models.Response{
			{Content: "Toute modification des statuts doit faire l'objet d'une publication légale."},
			{Content: "Les modifications courantes concernent : changement d'adresse, augmentation de capital, nomination de dirigeants."},
		},
	})
	kb.Faq.Put(&models.Entry{
		ID:       "tarifs",
		Title:    "Quels sont les tarifs des annonces légales ?",
		Keywords: []string{"tarif", "prix", "coût"},
		Examples: models.Examples{
			Questions:  []string{"Quels sont les tarifs des annonces légales ?"},
			Variations: []string{"combien coûte une annonce légale"},
		},
		Responses: []models.Response{
			{Content: "Les tarifs varient selon la longueur de l'annonce et le département. Contactez-nous pour un devis personnalisé."},
		},
	})
	kb.Faq.Put(&models.Entry{
		ID:       "delais",
		Title:    "Quels sont les délais de publication ?",
		Keywords: []string{"délai", "publication"},
		Examples: models.Examples{
			Questions:  []string{"Quels sont les délais de publication ?"},
			Variations: []string{"en combien de temps mon annonce est publiée"},
		},
		Responses: []models.Response{
			{Content: "Les annonces peuvent être publiées sous 24h après validation du contenu et paiement."},
		},
	})
	kb.Contact = models.Contact{
		Email:     "contact@annonces-legales.fr",
		Telephone: "01 23 45 67 89",
		Horaires:  "Du lundi au vendredi, 9h-18h",
	}
	return kb
}
