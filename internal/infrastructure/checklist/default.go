package checklist

import "strings"

// sampleChecklist is written when no checklist file exists yet. It lists the
// fundamental fields of a funding application form grouped by section.
var sampleChecklist = []string{
	"# Campos fundamentales del formulario",
	"# Un campo por línea. Las líneas que empiezan con # son comentarios.",
	"",
	"# Identificación",
	"RUT",
	"Nombre",
	"Apellido Paterno",
	"Apellido Materno",
	"Email",
	"Teléfono",
	"",
	"# Datos de Empresa",
	"Razón Social",
	"RUT Empresa",
	"Giro Comercial",
	"Fecha Inicio Actividades",
	"",
	"# Ubicación",
	"Dirección",
	"Comuna",
	"Región",
	"",
	"# Proyecto",
	"Nombre del Proyecto",
	"Descripción del Proyecto",
	"Monto Solicitado",
	"Duración del Proyecto",
}

// SampleContent returns the sample checklist as file contents.
func SampleContent() []byte {
	return []byte(strings.Join(sampleChecklist, "\n") + "\n")
}

// DefaultEntries returns the field names of the sample checklist.
func DefaultEntries() []string {
	return ParseLines(strings.Join(sampleChecklist, "\n"))
}
