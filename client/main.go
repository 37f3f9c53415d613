// A terminal smoke-test client: spins up a room with four players
// against a running API server, draws a card, plays a round and walks
// a proof through group voting.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/pterm/pterm"
)

var (
	apiBase  = flag.String("api", "http://localhost:4000", "API server base URL")
	packID   = flag.String("pack", "base", "pack to draw from")
	cardType = flag.String("type", "dare", "card type: truth or dare")
	level    = flag.String("level", "", "difficulty level (optional)")
)

type apiClient struct {
	base string
	http *http.Client
}

func (c *apiClient) post(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) get(path string, out interface{}) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	flag.Parse()

	pterm.DefaultHeader.Println("dareroom smoke test")
	client := &apiClient{base: *apiBase, http: &http.Client{Timeout: 10 * time.Second}}

	var room struct {
		ID        string `json:"id"`
		CreatedBy string `json:"createdBy"`
	}
	must(client.post("/rooms", map[string]string{"createdBy": "cli"}, &room))
	pterm.Success.Printfln("Room created: %s", room.ID)

	players := []struct {
		Name   string
		Gender string
		ID     string
	}{
		{Name: "Alice", Gender: "f"},
		{Name: "Bob", Gender: "m"},
		{Name: "Carol", Gender: "f"},
		{Name: "Dave", Gender: "m"},
	}
	for i := range players {
		var resp struct {
			ID string `json:"id"`
		}
		must(client.post("/rooms/"+room.ID+"/players",
			map[string]string{"name": players[i].Name, "gender": players[i].Gender}, &resp))
		players[i].ID = resp.ID
	}
	pterm.Info.Printfln("Seated %d players", len(players))

	var card struct {
		ID           string `json:"id"`
		Text         string `json:"text"`
		Type         string `json:"type"`
		Level        string `json:"level"`
		PackID       string `json:"packId"`
		RenderedText string `json:"renderedText"`
	}
	drawPath := fmt.Sprintf("/cards/next?type=%s&packId=%s&level=%s&roomId=%s&playerId=%s",
		*cardType, *packID, *level, room.ID, players[0].ID)
	must(client.get(drawPath, &card))

	display := card.RenderedText
	if display == "" {
		display = card.Text
	}
	pterm.DefaultBox.WithTitle(players[0].Name + "'s turn").Println(display)

	var round struct {
		ID string `json:"id"`
	}
	must(client.post("/rooms/"+room.ID+"/rounds", map[string]string{
		"playerId": players[0].ID,
		"cardId":   card.ID,
		"cardText": display,
		"cardType": card.Type,
		"level":    card.Level,
		"packId":   card.PackID,
	}, &round))

	var proof struct {
		ProofID string `json:"proofId"`
	}
	must(client.post("/rooms/"+room.ID+"/proofs", map[string]string{
		"createdBy": players[0].ID,
		"roundId":   round.ID,
	}, &proof))
	pterm.Info.Printfln("Proof opened: %s", proof.ProofID)

	var result struct {
		Status string `json:"status"`
		Yes    int    `json:"yes"`
		No     int    `json:"no"`
	}
	votes := []struct {
		Voter string
		Value string
	}{
		{players[1].ID, "yes"},
		{players[2].ID, "yes"},
		{players[3].ID, "no"},
	}
	for _, v := range votes {
		must(client.post("/rooms/"+room.ID+"/proofs/"+proof.ProofID+"/vote", map[string]interface{}{
			"voterId": v.Voter,
			"vote":    v.Value,
		}, &result))
	}

	table := pterm.TableData{
		{"Verdict", "Yes", "No"},
		{result.Status, fmt.Sprint(result.Yes), fmt.Sprint(result.No)},
	}
	pterm.DefaultTable.WithHasHeader().WithData(table).Render()

	if result.Status == "approved" {
		pterm.Success.Println("Round completed by group vote")
	} else {
		pterm.Warning.Printfln("Round finished with verdict %q", result.Status)
	}
}

func must(err error) {
	if err != nil {
		pterm.Fatal.Println(err)
	}
}
