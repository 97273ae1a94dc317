package schemas

import (
	"strings"

	"github.com/JonMunkholm/crmimport/internal/core"
)

// Thresholds for the price sanity checks.
const (
	MinSalePrice    = 1000
	MaxMonthlyRent  = 100000
	MinDescription  = 50
	RecommendImages = 3
)

var listingTypes = []string{"sale", "rent"}

var listingTypeAliases = map[string]string{
	"venda":        "sale",
	"vende-se":     "sale",
	"vender":       "sale",
	"for sale":     "sale",
	"sell":         "sale",
	"compra":       "sale",
	"arrendamento": "rent",
	"arrendar":     "rent",
	"arrenda-se":   "rent",
	"aluguer":      "rent",
	"aluguel":      "rent",
	"rental":       "rent",
	"lease":        "rent",
	"for rent":     "rent",
}

var propertyTypes = []string{"apartment", "house", "land", "commercial", "office", "garage", "room"}

var propertyTypeAliases = map[string]string{
	"apartamento":    "apartment",
	"flat":           "apartment",
	"andar":          "apartment",
	"moradia":        "house",
	"vivenda":        "house",
	"casa":           "house",
	"villa":          "house",
	"terreno":        "land",
	"lote":           "land",
	"plot":           "land",
	"loja":           "commercial",
	"shop":           "commercial",
	"armazém":        "commercial",
	"armazem":        "commercial",
	"warehouse":      "commercial",
	"escritório":     "office",
	"escritorio":     "office",
	"garagem":        "garage",
	"parking":        "garage",
	"estacionamento": "garage",
	"quarto":         "room",
}

// Field order is the alias tie-break. bathrooms precedes bedrooms because
// "bathrooms" contains "rooms"; city precedes address so "location.city" is
// a city; postal_code precedes external_id because "código postal" contains
// "código".
var propertyFields = []core.FieldSpec{
	{
		Name:        "listing_type",
		Label:       "Listing type",
		Type:        core.FieldEnum,
		Required:    true,
		Aliases:     []string{"negócio", "negocio", "transac", "finalidade", "listing", "operation", "operação", "operacao", "business"},
		EnumValues:  listingTypes,
		EnumAliases: listingTypeAliases,
	},
	{
		Name:    "bathrooms",
		Label:   "Bathrooms",
		Type:    core.FieldNumber,
		Aliases: []string{"casas de banho", "casa de banho", "wc", "banho", "bathroom", "baths"},
	},
	{
		Name:     "bedrooms",
		Label:    "Bedrooms",
		Type:     core.FieldNumber,
		Typology: true,
		Aliases:  []string{"quartos", "tipologia", "assoalhadas", "bedroom", "rooms", "beds"},
	},
	{
		Name:        "property_type",
		Label:       "Property type",
		Type:        core.FieldEnum,
		Required:    true,
		Aliases:     []string{"tipo", "type", "categoria", "category"},
		EnumValues:  propertyTypes,
		EnumAliases: propertyTypeAliases,
	},
	{
		Name:     "price",
		Label:    "Price",
		Type:     core.FieldNumber,
		Required: true,
		Aliases:  []string{"preço", "preco", "price", "valor", "renda", "rent"},
	},
	{
		Name:    "area",
		Label:   "Area (m²)",
		Type:    core.FieldNumber,
		Aliases: []string{"área", "area", "m2", "m²", "superfície", "superficie", "size", "sqm"},
	},
	{
		Name:    "year",
		Label:   "Year built",
		Type:    core.FieldNumber,
		Aliases: []string{"ano", "year", "construção", "construcao", "built"},
	},
	{
		Name:     "title",
		Label:    "Title",
		Type:     core.FieldText,
		Required: true,
		Aliases:  []string{"título", "titulo", "title", "headline", "designação", "designacao", "nome", "name"},
	},
	{
		Name:    "description",
		Label:   "Description",
		Type:    core.FieldText,
		Aliases: []string{"descrição", "descricao", "description", "desc", "detalhes", "details", "texto"},
	},
	{
		Name:    "postal_code",
		Label:   "Postal code",
		Type:    core.FieldText,
		Aliases: []string{"código postal", "codigo postal", "postal", "zip"},
	},
	{
		Name:     "city",
		Label:    "City",
		Type:     core.FieldText,
		Required: true,
		Aliases:  []string{"cidade", "city", "concelho", "município", "municipio", "localidade", "town"},
	},
	{
		Name:    "district",
		Label:   "District",
		Type:    core.FieldText,
		Aliases: []string{"distrito", "district", "freguesia", "bairro", "zona", "região", "regiao"},
	},
	{
		Name:    "address",
		Label:   "Address",
		Type:    core.FieldText,
		Aliases: []string{"morada", "endereço", "endereco", "address", "rua", "street", "localização", "location"},
	},
	{
		Name:    "images",
		Label:   "Images",
		Type:    core.FieldList,
		Aliases: []string{"imagens", "imagem", "fotos", "foto", "images", "image", "photos", "photo", "pictures", "galeria"},
	},
	{
		Name:    "amenities",
		Label:   "Amenities",
		Type:    core.FieldList,
		Aliases: []string{"comodidades", "equipamentos", "caracter", "amenities", "features", "extras"},
	},
	{
		Name:    "tags",
		Label:   "Tags",
		Type:    core.FieldList,
		Aliases: []string{"tag", "etiqueta", "label"},
	},
	{
		Name:    "external_id",
		Label:   "External reference",
		Type:    core.FieldText,
		Aliases: []string{"referência", "referencia", "ref", "código", "codigo", "external", "sku"},
	},
}

func registerProperties() {
	core.Register(&core.Schema{
		Key:            "properties",
		Label:          "Properties",
		Table:          "properties",
		Version:        AliasVersion,
		Fields:         propertyFields,
		Classification: []string{"listing_type", "property_type"},
		Rules: []core.RuleFunc{
			propertyTextRule,
			propertyPriceRule,
			propertyCountsRule,
			propertyQualityRule,
		},
	})
}

func propertyTextRule(rec core.CandidateRecord, out *core.ValidationOutcome) {
	if title := strings.TrimSpace(rec.Text("title")); title != "" && runeLen(title) < 5 {
		out.AddError("title", "too short (minimum 5 characters)")
	}
	if city := strings.TrimSpace(rec.Text("city")); city != "" && runeLen(city) < 2 {
		out.AddError("city", "too short (minimum 2 characters)")
	}
}

func propertyPriceRule(rec core.CandidateRecord, out *core.ValidationOutcome) {
	price, ok := rec.Number("price")
	if !ok {
		return
	}
	if price <= 0 {
		out.AddError("price", "must be greater than zero")
		return
	}
	switch rec.Text("listing_type") {
	case "sale":
		if price < MinSalePrice {
			out.AddError("price", "%.0f is below the minimum sale price of %d", price, MinSalePrice)
		}
	case "rent":
		if price > MaxMonthlyRent {
			out.AddError("price", "%.0f is above the maximum monthly rent of %d", price, MaxMonthlyRent)
		}
	}
}

func propertyCountsRule(rec core.CandidateRecord, out *core.ValidationOutcome) {
	for _, field := range []string{"bedrooms", "bathrooms", "area"} {
		if n, ok := rec.Number(field); ok && n < 0 {
			out.AddError(field, "must not be negative")
		}
	}
	if year, ok := rec.Number("year"); ok && (year < 1800 || year > 2100) {
		out.AddWarning("year", "%.0f looks wrong", year)
	}
}

func propertyQualityRule(rec core.CandidateRecord, out *core.ValidationOutcome) {
	if runeLen(strings.TrimSpace(rec.Text("description"))) < MinDescription {
		out.AddWarning("description", "shorter than %d characters", MinDescription)
	}

	images := 0
	if v, ok := rec["images"]; ok {
		images = len(v.List)
	}
	switch {
	case images == 0:
		out.AddWarning("images", "no images")
	case images < RecommendImages:
		out.AddWarning("images", "fewer than %d images", RecommendImages)
	}

	if !rec.Has("bedrooms") {
		out.AddWarning("bedrooms", "not set")
	}
	if !rec.Has("area") {
		out.AddWarning("area", "not set")
	}
}
