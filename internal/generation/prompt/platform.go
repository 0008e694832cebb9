package prompt

// Platform identifies a search engine the generated queries target.
type Platform string

const (
	PlatformGoogle  Platform = "google"
	PlatformShodan  Platform = "shodan"
	PlatformZoomEye Platform = "zoomeye"
	PlatformCensys  Platform = "censys"
	PlatformFOFA    Platform = "fofa"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformGoogle, PlatformShodan, PlatformZoomEye, PlatformCensys, PlatformFOFA}

// GenericInstructions is used for platforms with no operator table.
const GenericInstructions = "Generate standard OSINT queries."

var platformInstructions = map[Platform]string{
	PlatformGoogle:  "Operadores disponibles: site:, inurl:, intitle:, filetype:, intext:, cache:, link:, related:, info:. Considera técnicas avanzadas como combinaciones booleanas y wildcards.",
	PlatformShodan:  "Operadores disponibles: hostname:, port:, country:, city:, org:, os:, product:, version:, vuln:, http.title:, ssl:, net:. Enfócate en identificación de servicios y vulnerabilidades.",
	PlatformZoomEye: "Operadores disponibles: app:, ver:, os:, service:, port:, country:, city:, cidr:, hostname:, device:. Especialízate en detección de dispositivos IoT y servicios expuestos.",
	PlatformCensys:  "Operadores disponibles: AND, OR, NOT, ip:, services.port:, location.country_code:, services.http.response.html_title:. Syntax is SQL-like.",
	PlatformFOFA:    "Operadores disponibles: title=, header=, body=, domain=, host=, port=, ip=, protocol=, city=, region=, country=. Use base64 encoding if necessary for strings but provide clear text logic.",
}

func (p Platform) IsValid() bool {
	_, ok := platformInstructions[p]
	return ok
}

// Instructions returns the operator documentation for p, or GenericInstructions.
func (p Platform) Instructions() string {
	if s, ok := platformInstructions[p]; ok {
		return s
	}
	return GenericInstructions
}
