package entity

import "strings"

// ProfileGroup representa uma unidade de trabalho para o histórico de custos.
// Pode ser um único perfil ou um grupo de perfis da mesma conta AWS
// quando o merge é solicitado.
type ProfileGroup struct {
	// AccountID é o ID da conta AWS resolvido pelos perfis do grupo.
	AccountID string

	// Profiles é a lista de perfis que compõem este grupo; o primeiro é
	// usado para as consultas à conta.
	Profiles []string
}

// Primary returns the profile used to query the account.
func (g ProfileGroup) Primary() string {
	return g.Profiles[0]
}

// Identifier é o nome exibido na interface (ex: "dev, staging").
func (g ProfileGroup) Identifier() string {
	return strings.Join(g.Profiles, ", ")
}

// GroupSessions agrupa sessões resolvidas. Com merge, perfis da mesma conta
// formam um grupo; sem merge, cada perfil é um grupo. A ordem de entrada é preservada.
func GroupSessions(sessions []*ProfileSession, merge bool) []ProfileGroup {
	var groups []ProfileGroup
	index := make(map[string]int)
	for _, s := range sessions {
		if !s.Resolved() {
			continue
		}
		if merge {
			if i, ok := index[s.AccountID()]; ok {
				groups[i].Profiles = append(groups[i].Profiles, s.ProfileName)
				continue
			}
			index[s.AccountID()] = len(groups)
		}
		groups = append(groups, ProfileGroup{AccountID: s.AccountID(), Profiles: []string{s.ProfileName}})
	}
	return groups
}
