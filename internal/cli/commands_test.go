package cli_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/objectstore/internal/cli"
)

func Test_Put_Then_Get_RoundTrips_A_Json_Object(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	uuid := c.MustRun("put", "--class", "User", `{"name": "Alice", "age": 30}`)
	require.NotEmpty(t, uuid)

	out := c.MustRun("get", uuid)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "Alice", decoded["fields"].(map[string]any)["name"])
}

func Test_Put_Reads_From_Stdin_When_No_Argument_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	uuid := c.MustRunWithInput(`{"name": "Bob"}`, "put", "--class", "User")
	require.NotEmpty(t, uuid)

	out := c.MustRun("get", uuid)
	cli.AssertContains(t, out, "Bob")
}

func Test_Put_With_Explicit_UUID_Is_Honored(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	fixed := "3f9a6e2c-1b4d-4e8a-9c3f-1234567890ab"

	uuid := c.MustRun("put", "--uuid", fixed, `{"name": "Carol"}`)
	require.Equal(t, fixed, uuid)
}

func Test_Put_Rejects_Invalid_Json(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("put", `{not-json`)
	cli.AssertContains(t, stderr, "invalid JSON")
}

func Test_List_Filters_By_Class(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	u1 := c.MustRun("put", "--class", "User", `{"name": "A"}`)
	u2 := c.MustRun("put", "--class", "Widget", `{"name": "B"}`)

	out := c.MustRun("list", "--class", "User")
	cli.AssertContains(t, out, u1)
	cli.AssertNotContains(t, out, u2)
}

func Test_Delete_Then_Get_Fails_NotFound(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	uuid := c.MustRun("put", `{"name": "Deleteme"}`)

	c.MustRun("delete", uuid)

	stderr := c.MustFail("get", uuid)
	require.NotEmpty(t, stderr)
}

func Test_Delete_Nonexistent_Fails_Unless_Forced(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	fake := "3f9a6e2c-1b4d-4e8a-9c3f-1234567890ab"

	c.MustFail("delete", fake)
	c.MustRun("delete", "--force", fake)
}

func Test_Check_Reports_Ok_On_A_Clean_Store(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	c.MustRun("put", `{"name": "Fine"}`)

	out := c.MustRun("check")
	cli.AssertContains(t, out, "ok")
}

func Test_Stats_Reports_Object_Count(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	c.MustRun("put", `{"name": "A"}`)
	c.MustRun("put", `{"name": "B"}`)

	out := c.MustRun("stats")
	cli.AssertContains(t, out, "objects: 2")
}

func Test_Safemode_On_Blocks_Put_Then_Off_Restores_It(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	out := c.MustRun("safemode", "on")
	cli.AssertContains(t, out, "on")

	c.MustFail("put", `{"name": "Blocked"}`)

	out = c.MustRun("safemode", "off")
	cli.AssertContains(t, out, "off")

	uuid := c.MustRun("put", `{"name": "Allowed"}`)
	require.NotEmpty(t, uuid)
}

func Test_Lifetime_Set_Then_Get_Then_Clear(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	uuid := c.MustRun("put", `{"name": "Ttl"}`)

	c.MustRun("lifetime", uuid, "60")

	out := c.MustRun("lifetime", uuid)
	require.NotEqual(t, "none", out)

	out = c.MustRun("lifetime", "--clear", uuid)
	require.NotEmpty(t, out)

	out = c.MustRun("lifetime", uuid)
	require.Equal(t, "none", out)
}

func Test_Json_Flag_Emits_Machine_Readable_Output(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	uuid := c.MustRun("put", `{"name": "Json"}`)

	out := c.MustRun("--json", "stats")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, float64(1), decoded["ObjectCount"])

	_ = uuid
}
