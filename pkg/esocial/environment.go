package esocial

import (
	"fmt"

	"github.com/sirosfoundation/go-esocial/internal/config"
)

// Environment is an eSocial deployment
type Environment string

const (
	// Production is the live environment
	Production Environment = config.EnvironmentProduction
	// Restricted is the restricted production (test) environment
	Restricted Environment = config.EnvironmentRestricted
)

// Endpoints are the service descriptions of an environment
type Endpoints struct {
	SendWSDL  string
	QueryWSDL string
}

var endpoints = map[Environment]Endpoints{
	Production: {
		SendWSDL:  "https://webservices.envio.esocial.gov.br/servicos/empregador/enviarloteeventos/WsEnviarLoteEventos.svc?wsdl",
		QueryWSDL: "https://webservices.consulta.esocial.gov.br/servicos/empregador/consultarloteeventos/WsConsultarLoteEventos.svc?wsdl",
	},
	Restricted: {
		SendWSDL:  "https://webservices.producaorestrita.esocial.gov.br/servicos/empregador/enviarloteeventos/WsEnviarLoteEventos.svc?wsdl",
		QueryWSDL: "https://webservices.producaorestrita.esocial.gov.br/servicos/empregador/consultarloteeventos/WsConsultarLoteEventos.svc?wsdl",
	},
}

// ParseEnvironment returns the environment with the given name
func ParseEnvironment(name string) (Environment, error) {
	env := Environment(name)
	if _, ok := endpoints[env]; !ok {
		return "", fmt.Errorf("unknown eSocial environment %q", name)
	}
	return env, nil
}

// Endpoints returns the service descriptions of e. Unknown environments
// yield the zero value.
func (e Environment) Endpoints() Endpoints {
	return endpoints[e]
}

func (e Environment) String() string {
	return string(e)
}
