package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kastheco/monothematic/config/schemestore"
	"github.com/kastheco/monothematic/internal/wallpaper"
	"github.com/kastheco/monothematic/log"
	"github.com/kastheco/monothematic/palette"
	"github.com/kastheco/monothematic/recolor"
	"github.com/kastheco/monothematic/ui"
)

// Output formats of `monothematic palette`.
const (
	formatPreview = "preview"
	formatJSON    = "json"
	formatList    = "list"
)

// NewPaletteCmd returns `monothematic palette`.
func NewPaletteCmd(opts *rootOptions) *cobra.Command {
	var seed, image, method, format string
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "print the palette for a seed color or image",
		Long: "Print the palette derived from --seed, from the dominant color of --image, " +
			"or, with neither, from the current wallpaper.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatPreview, formatJSON, formatList:
			default:
				return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatPreview, formatJSON, formatList)
			}

			var c palette.Color
			if seed != "" {
				var ok bool
				if c, ok = palette.Decode(seed); !ok {
					return fmt.Errorf("invalid seed color %q", seed)
				}
			} else {
				s, err := opts.load()
				if err != nil {
					return err
				}
				if image == "" {
					if image, err = wallpaper.FindPath(s.cfg.WallpaperConfig, s.paths.Home); err != nil {
						return err
					}
				}
				if method == "" {
					method = s.cfg.Extraction
				}
				if c, err = wallpaper.Extract(cmd.Context(), image, method); err != nil {
					return err
				}
				log.Debug("palette", "seed %s from %s", c.CSS(), image)
			}

			return writePalette(cmd.OutOrStdout(), palette.Generate(c), format)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "seed color as #rgb, #rrggbb or oklch(L C H)")
	cmd.Flags().StringVar(&image, "image", "", "derive the seed from this image")
	cmd.Flags().StringVar(&method, "method", "", "extraction method for --image: histogram or kmeans (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", formatPreview, "output format: preview, json or list")
	cmd.MarkFlagsMutuallyExclusive("seed", "image")
	return cmd
}

func writePalette(w io.Writer, p palette.Palette, format string) error {
	switch format {
	case formatJSON:
		data, err := p.EncodeScheme()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case formatList:
		for _, nc := range p.Flatten() {
			if _, err := fmt.Fprintf(w, "%-12s %s %s\n", nc.Name, nc.Hex, nc.CSS); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, ui.RenderPalette(p))
		return err
	}
}

// NewRecolorCmd returns `monothematic recolor`.
func NewRecolorCmd(opts *rootOptions) *cobra.Command {
	var seed, scheme, server string
	cmd := &cobra.Command{
		Use:   "recolor [file]",
		Short: "rewrite the color literals of a file (or stdin) to the nearest palette color",
		Long: "Recolor the hex and oklch() literals of a file, or stdin when no file is given, and print the result. " +
			"The palette comes from --seed, from a running server with --server, or from the scheme file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			out := cmd.OutOrStdout()

			if server != "" {
				text, err := schemestore.NewHTTPClient(server).Recolor(cmd.Context(), string(data))
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, text)
				return err
			}

			p, err := recolorPalette(opts, seed, scheme)
			if err != nil {
				return err
			}
			res := recolor.Apply(string(data), p)
			log.Info("recolor", "replaced %d color literals", len(res.Replacements))
			_, err = io.WriteString(out, res.Text)
			return err
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "derive the palette from this seed color")
	cmd.Flags().StringVar(&scheme, "scheme", "", "read the palette from this scheme file (default from config)")
	cmd.Flags().StringVar(&server, "server", "", "recolor through a scheme server, e.g. http://127.0.0.1:7433")
	cmd.MarkFlagsMutuallyExclusive("seed", "scheme", "server")
	return cmd
}

func recolorPalette(opts *rootOptions, seed, scheme string) (palette.Palette, error) {
	if seed != "" {
		c, ok := palette.Decode(strings.TrimSpace(seed))
		if !ok {
			return palette.Palette{}, fmt.Errorf("invalid seed color %q", seed)
		}
		return palette.Generate(c), nil
	}
	if scheme == "" {
		s, err := opts.load()
		if err != nil {
			return palette.Palette{}, err
		}
		scheme = s.cfg.SchemeFile
	}
	data, err := os.ReadFile(scheme)
	if err != nil {
		return palette.Palette{}, fmt.Errorf("read scheme (run `monothematic run` first?): %w", err)
	}
	return palette.ParseScheme(data)
}
