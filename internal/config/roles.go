package config

import (
	"fmt"
	"slices"
	"strings"
)

// RolesUS is the default role term set for English-speaking organizations.
// The leading empty term runs the bare organization query first.
var RolesUS = []string{
	"",
	"IT", "Human Resources", "Recruiter", "Marketing", "Finance",
	"Sales", "Director", "Manager", "Developer", "Engineer",
	"Consultant", "Analyst", "CEO", "CTO", "CISO", "Administrator",
	"Management", "Legal", "Support", "HR", "Health", "Operations",
}

// RolesES targets Spanish-speaking organizations, weighted toward the
// branch network and corporate functions of banking targets.
var RolesES = []string{
	"",

	"Gestor", "Gestor Comercial", "Director de Oficina", "Subdirector",
	"Interventor", "Cajero", "Atención al Cliente", "Asesor Financiero",
	"Banca Privada", "Banca Personal", "Banca de Empresas", "Gerente",
	"Territorial", "Zona",

	"Analista", "Riesgos", "Admisiones", "Auditoría", "Control",
	"Recursos Humanos", "Talento", "Selección", "Formación",
	"Marketing", "Comunicación", "Prensa", "Marca",
	"Legal", "Jurídico", "Compliance", "Normativa", "Abogado",
	"Contabilidad", "Financiero", "Tesoreria", "Fiscal",
	"Operaciones", "Administrativo", "Secretaría",

	"Informática", "Sistemas", "Tecnología", "Desarrollador", "Programador",
	"Arquitecto", "Ingeniero", "Ciberseguridad", "Seguridad", "CISO",
	"Datos", "Data", "Analítica", "Big Data", "Transformación",
	"Digital", "Innovation", "Innovación", "Agile", "Scrum",
	"Soporte", "Helpdesk", "Técnico",

	"Director", "Responsable", "Jefe", "Coordinador", "Manager",
	"Delegado", "Presidente", "Consejero", "Socio",
	"CEO", "CTO", "CIO", "CFO", "COO",
}

// Preset returns a copy of the named role term list.
func Preset(name string) ([]string, error) {
	switch strings.ToLower(name) {
	case "us":
		return slices.Clone(RolesUS), nil
	case "es":
		return slices.Clone(RolesES), nil
	default:
		return nil, fmt.Errorf("unknown roles preset %q (available: us, es)", name)
	}
}
