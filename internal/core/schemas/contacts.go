package schemas

import (
	"strings"

	"github.com/JonMunkholm/crmimport/internal/core"
)

// Field order is the alias tie-break: company and job_title come before
// full_name so "nome da empresa" is a company, not a person.
var contactFields = []core.FieldSpec{
	{
		Name:    "email",
		Label:   "Email",
		Type:    core.FieldEmail,
		Aliases: []string{"email", "e-mail", "mail", "correio"},
	},
	{
		Name:  "phone",
		Label: "Phone",
		Type:  core.FieldText,
		Aliases: []string{
			"telefone", "telemóvel", "telemovel", "phone", "tel", "mobile",
			"celular", "whatsapp",
		},
	},
	{
		Name:    "company",
		Label:   "Company",
		Type:    core.FieldText,
		Aliases: []string{"empresa", "company", "organização", "organizacao", "organization", "org"},
	},
	{
		Name:    "job_title",
		Label:   "Job title",
		Type:    core.FieldText,
		Aliases: []string{"cargo", "função", "funcao", "job", "title", "position"},
	},
	{
		Name:    "address",
		Label:   "Address",
		Type:    core.FieldText,
		Aliases: []string{"morada", "endereço", "endereco", "address", "adr", "rua"},
	},
	{
		Name:    "notes",
		Label:   "Notes",
		Type:    core.FieldText,
		Aliases: []string{"nota", "note", "observa", "comentário", "comentario", "comment"},
	},
	{
		Name:    "tags",
		Label:   "Tags",
		Type:    core.FieldList,
		Aliases: []string{"tag", "etiqueta", "label"},
	},
	{
		Name:    "source",
		Label:   "Source",
		Type:    core.FieldText,
		Aliases: []string{"origem", "source", "fonte", "canal"},
	},
	{
		Name:     "full_name",
		Label:    "Full name",
		Type:     core.FieldText,
		Required: true,
		Aliases:  []string{"nome", "name", "fn", "cliente", "contact"},
	},
}

func registerContacts() {
	core.Register(&core.Schema{
		Key:        "contacts",
		Label:      "Contacts",
		Table:      "contacts",
		Version:    AliasVersion,
		Fields:     contactFields,
		NaturalKey: "email",
		Rules:      []core.RuleFunc{contactNameRule, contactReachRule},
	})
}

func contactNameRule(rec core.CandidateRecord, out *core.ValidationOutcome) {
	if name := strings.TrimSpace(rec.Text("full_name")); name != "" && runeLen(name) < 2 {
		out.AddError("full_name", "too short (minimum 2 characters)")
	}
}

func contactReachRule(rec core.CandidateRecord, out *core.ValidationOutcome) {
	if !rec.Has("email") && !rec.Has("phone") {
		out.AddWarning("", "no email or phone; the contact cannot be reached")
		return
	}
	if phone := rec.Text("phone"); phone != "" && digitCount(phone) < 9 {
		out.AddWarning("phone", "has fewer than 9 digits")
	}
}
