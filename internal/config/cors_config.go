package config

import "strings"

type Cors struct {
	allowed AllowedOrigins
	methods string
	headers string
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func newCors(vars EnvVars) Cors {
	allowed := make(AllowedOrigins, len(vars.AllowedOrigins))
	for _, o := range vars.AllowedOrigins {
		allowed[strings.TrimSpace(o)] = struct{}{}
	}
	return Cors{allowed: allowed, methods: vars.AllowedMethods, headers: vars.AllowedHeaders}
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	return c.allowed
}

func (c Cors) GetAllowedMethods() string {
	return c.methods
}

func (c Cors) GetAllowedHeaders() string {
	return c.headers
}
