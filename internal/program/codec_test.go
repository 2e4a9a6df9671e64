package program

import "testing"

func TestParseSimpleScreen(t *testing.T) {
	xml := `
	<screen timeStamps="12345">
	  <program guid="abc-123" name="Test" type="normal">
	    <area guid="area-1" name="Main" alpha="255">
	      <rectangle x="0" y="0" width="128" height="64"/>
	      <resources>
	        <text guid="txt-1" singleLine="true">
	          <string>Hello World</string>
	          <effect in="0" out="0" inSpeed="0" outSpeed="0" duration="50"/>
	          <font size="12" color="#ff0000"/>
	          <style align="center" valign="middle"/>
	        </text>
	      </resources>
	    </area>
	  </program>
	</screen>
	`
	screen, err := Parse(xml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(screen.Programs) != 1 {
		t.Fatalf("expected 1 program, got %d", len(screen.Programs))
	}
	prog := screen.Programs[0]
	if prog.GUID != "abc-123" {
		t.Fatalf("expected guid abc-123, got %q", prog.GUID)
	}
	if len(prog.Areas) != 1 {
		t.Fatalf("expected 1 area, got %d", len(prog.Areas))
	}
	area := prog.Areas[0]
	if area.Rectangle.Width != 128 || area.Rectangle.Height != 64 {
		t.Fatalf("unexpected rectangle: %+v", area.Rectangle)
	}
	if len(area.Resources.Items()) != 1 {
		t.Fatalf("expected 1 resource item, got %d", len(area.Resources.Items()))
	}
}

func TestParseSDKWrapped(t *testing.T) {
	xml := `<?xml version="1.0" encoding="utf-8"?>
	<sdk guid="session-guid">
	  <in method="AddProgram">
	    <screen>
	      <program guid="prog-1" name="NewProgram" type="normal">
	        <area guid="area-1">
	          <rectangle width="128" height="64" x="0" y="0"/>
	          <resources>
	            <image guid="img-1" fit="stretch">
	              <effect in="17" out="17" inSpeed="3" outSpeed="3" duration="50"/>
	              <file name="logo.png"/>
	            </image>
	          </resources>
	        </area>
	      </program>
	    </screen>
	  </in>
	</sdk>
	`
	screen, err := Parse(xml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(screen.Programs) != 1 {
		t.Fatalf("expected 1 program, got %d", len(screen.Programs))
	}
}

func TestParseClock(t *testing.T) {
	xml := `
	<screen>
	  <program guid="p1" type="normal">
	    <area guid="a1">
	      <rectangle x="0" y="0" width="128" height="64"/>
	      <resources>
	        <clock guid="clk-1" type="digital" timezone="+8:00">
	          <date format="1" color="#00ff00" display="true"/>
	          <time format="1" color="#ffffff" display="true"/>
	          <week format="2" color="#ffff00" display="true"/>
	        </clock>
	      </resources>
	    </area>
	  </program>
	</screen>
	`
	screen, err := Parse(xml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(screen.Programs[0].Areas[0].Resources.Items()) != 1 {
		t.Fatalf("expected 1 resource item")
	}
}

func TestParseUnknownFormatErrors(t *testing.T) {
	if _, err := Parse("not xml at all"); err == nil {
		t.Fatalf("expected error for unrecognized format")
	}
}

func TestParseMalformedDeclarationErrors(t *testing.T) {
	if _, err := Parse("<?xml version=\"1.0\""); err == nil {
		t.Fatalf("expected error for malformed xml declaration")
	}
}

func TestExtractMethod(t *testing.T) {
	raw := `<sdk guid="g"><in method="OpenScreen"></in></sdk>`
	method, ok := ExtractMethod(raw)
	if !ok || method != "OpenScreen" {
		t.Fatalf("expected method OpenScreen, got %q ok=%v", method, ok)
	}
	if _, ok := ExtractMethod("<sdk></sdk>"); ok {
		t.Fatalf("expected no method found")
	}
}

func TestParseColorValidAndFallback(t *testing.T) {
	r, g, b := ParseColor("#00ff80")
	if r != 0 || g != 255 || b != 128 {
		t.Fatalf("unexpected parse: %d %d %d", r, g, b)
	}
	r, g, b = ParseColor("not-a-color")
	if r != 255 || g != 0 || b != 0 {
		t.Fatalf("expected fallback red, got %d %d %d", r, g, b)
	}
	r, g, b = ParseColor("ffffff")
	if r != 255 || g != 255 || b != 255 {
		t.Fatalf("expected white without leading #, got %d %d %d", r, g, b)
	}
}
