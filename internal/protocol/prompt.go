package protocol

import (
	"fmt"
	"strings"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/sim/match"
)

// RenderPrompt projects a planning context into the text handed to language
// model planners. The output is deterministic for a given context.
func RenderPrompt(c decision.Context) string {
	var b strings.Builder

	b.WriteString("You are a tactical decision engine for a 5v5 football simulation.\n")
	fmt.Fprintf(&b, "Your task is to determine actions for %d players based on the current match situation.\n", len(c.Players))
	b.WriteString("For each player, decide whether to CONTINUE their current action or assign a NEW action.\n\n")

	b.WriteString("## Match State\n")
	fmt.Fprintf(&b, "Time: %dms (Period: %s)\n", c.TimeMS, c.State.Period)
	fmt.Fprintf(&b, "Score: Home %d - %d Away\n\n", c.State.HomeScore, c.State.AwayScore)

	b.WriteString("## Players\n")
	for _, p := range c.Players {
		ball := "NO_BALL"
		if p.HasBall {
			ball = "HAS_BALL"
		}
		fmt.Fprintf(&b, "Player %d (Team %d): Position (%.1f, %.1f), Stamina %.2f, Morale %.2f, %s\n",
			p.ID, p.TeamID, p.Position.X, p.Position.Y, p.Stamina, p.Morale, ball)
	}
	b.WriteString("\n")

	if len(c.RecentEvents) > 0 {
		b.WriteString("## Recent Events\n")
		for i, e := range c.RecentEvents {
			if i == decision.MaxRecentEvents {
				break
			}
			fmt.Fprintf(&b, "[%dms] %s - Player %d - %s\n", e.TMS, e.Type, e.PlayerID, describeEvent(e))
		}
		b.WriteString("\n")
	}

	if len(c.Intents) > 0 {
		b.WriteString("## Current Intents\n")
		for _, in := range c.Intents {
			action := "None"
			if in.Action != nil {
				action = in.Action.String()
			}
			fmt.Fprintf(&b, "Player %d: Status %s, Action: %s\n", in.PlayerID, in.Status, action)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Tactical Settings\n")
	fmt.Fprintf(&b, "Attack/Defense Balance: %.2f\n", c.Tactics.AttackDefenseBalance)
	fmt.Fprintf(&b, "Pressing Intensity: %.2f\n", c.Tactics.PressingIntensity)
	if len(c.Tactics.PlayerRoles) > 0 {
		b.WriteString("Player Roles:\n")
		for _, r := range c.Tactics.PlayerRoles {
			fmt.Fprintf(&b, "  Player %d: %s\n", r.PlayerID, r.RoleName)
		}
	}
	b.WriteString("\n")

	b.WriteString(outputInstructions(len(c.Players)))
	return b.String()
}

func describeEvent(e match.Event) string {
	p := e.Payload
	switch {
	case p.TargetPlayerID != nil:
		return fmt.Sprintf("Pass to %d", *p.TargetPlayerID)
	case p.ScorerID != nil:
		return fmt.Sprintf("GOAL by %d", *p.ScorerID)
	case p.OnPlayerID != nil:
		return fmt.Sprintf("Won from %d", *p.OnPlayerID)
	case p.OnTarget != nil && *p.OnTarget:
		return "Shot on target"
	case p.OnTarget != nil:
		return "Shot off target"
	default:
		return "Other event"
	}
}

func outputInstructions(players int) string {
	return fmt.Sprintf(`## Your Task
Generate a JSON response with actions for all %[1]d players.
Format:
{
  "intents": [
    {
      "player_id": <number>,
      "status": "New" or "Continue",
      "action": {
        "type": "AttackSpace" | "MarkPlayer" | "FindPassOption" | "HoldPosition" | "Press" | "MoveToBall" | "ReturnToPosition" | "BlockSpace",
        "target": {"x": <number>, "y": <number>} (if applicable),
        "target_id": <number> (if applicable),
        "position": {"x": <number>, "y": <number>} (ReturnToPosition only)
      } (only if status is "New")
    }
  ]
}

Important:
- Use "Continue" when the current action is still valid
- Use "New" when a new action is needed
- Include all %[1]d players in the response
- Actions should be tactical and context-aware
`, players)
}
