package match

import "matchsim.ai/internal/sim/geom"

// Kickoff slots, index = squad number within the team.
var (
	HomeSlots = [5]geom.Vec2{{X: 10, Y: 10}, {X: 10, Y: 20}, {X: 20, Y: 40}, {X: 30, Y: 60}, {X: 50, Y: 80}}
	AwaySlots = [5]geom.Vec2{{X: 58, Y: 95}, {X: 58, Y: 85}, {X: 48, Y: 65}, {X: 38, Y: 45}, {X: 18, Y: 25}}
)

var squadRoles = [5]string{"Defender", "Defender", "Midfielder", "Forward", "Forward"}

// FiveASide builds the ten starting players: ids 0-4 home, 5-9 away.
func FiveASide() []Player {
	players := make([]Player, 0, 10)
	for i, pos := range HomeSlots {
		persona := DefaultPersona()
		persona.RiskAppetite = 0.3 + float32(i)*0.1
		players = append(players, Player{
			ID:       uint32(i),
			TeamID:   TeamHome,
			Role:     squadRoles[i],
			Position: pos,
			Stamina:  1,
			Morale:   0.7,
			Persona:  persona,
		})
	}
	for i, pos := range AwaySlots {
		persona := DefaultPersona()
		persona.RiskAppetite = 0.4 + float32(i)*0.1
		persona.PressingIntensity = 0.6
		players = append(players, Player{
			ID:       uint32(i + 5),
			TeamID:   TeamAway,
			Role:     squadRoles[i],
			Position: pos,
			Stamina:  1,
			Morale:   0.7,
			Persona:  persona,
		})
	}
	return players
}
