package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"kheops-album-tools/album"
	"kheops-album-tools/constants"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// albumAction runs fn with a session and an authenticated album client.
func (app *App) albumAction(fn func(ctx context.Context, s *session, client *album.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := app.session(cmd)
		if err != nil {
			return err
		}
		defer s.logger.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		client, err := s.albumClient(ctx)
		if err != nil {
			return err
		}
		return s.settle(fn(ctx, s, client))
	}
}

func printAlbums(out io.Writer, albums []album.Album) {
	if len(albums) == 0 {
		fmt.Fprintln(out, "No album found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTUDIES\tSERIES\tINSTANCES")
	for _, a := range albums {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", a.ID, a.Name, a.NumberOfStudies, a.NumberOfSeries, humanize.Comma(int64(a.NumberOfInstances)))
	}
	w.Flush()
}

func printAlbum(out io.Writer, a *album.Album) {
	fmt.Fprintf(out, "ID:          %s\n", a.ID)
	fmt.Fprintf(out, "Name:        %s\n", a.Name)
	fmt.Fprintf(out, "Description: %s\n", a.Description)
	fmt.Fprintf(out, "Studies:     %d\n", a.NumberOfStudies)
	fmt.Fprintf(out, "Series:      %d\n", a.NumberOfSeries)
	fmt.Fprintf(out, "Instances:   %s\n", humanize.Comma(int64(a.NumberOfInstances)))
	fmt.Fprintf(out, "Users:       %d\n", a.NumberOfUsers)
	if len(a.Modalities) > 0 {
		fmt.Fprintf(out, "Modalities:  %s\n", strings.Join(a.Modalities, ", "))
	}
	if a.CreatedTime != "" {
		fmt.Fprintf(out, "Created:     %s\n", a.CreatedTime)
	}
}

func (app *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"show_album_list"},
		Short:   "List the albums of the user",
		Args:    cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			albums, err := client.ListAlbums(ctx, "")
			if err != nil {
				return err
			}
			printAlbums(s.out, albums)
			return nil
		}),
	}
}

func (app *App) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Find albums by name",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			name, err := s.prompt.ask("Album name")
			if err != nil {
				return err
			}
			albums, err := client.ListAlbums(ctx, name)
			if err != nil {
				return err
			}
			printAlbums(s.out, albums)
			return nil
		}),
	}
}

func (app *App) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show one album",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			a, err := client.GetAlbum(ctx, id)
			if err != nil {
				return err
			}
			printAlbum(s.out, a)
			return nil
		}),
	}
}

func (app *App) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "create",
		Aliases: []string{"create_album"},
		Short:   "Create an album, optionally filled from a subset folder",
		Args:    cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			name, err := s.prompt.ask("Album name")
			if err != nil {
				return err
			}
			description, err := s.prompt.optional("Description", "")
			if err != nil {
				return err
			}
			folder, err := s.prompt.optional("Folder to upload (empty for none)", "")
			if err != nil {
				return err
			}

			if folder == "" {
				a, err := client.CreateAlbum(ctx, name, description)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Album created: %s\n", a.ID)
				return nil
			}

			result, err := client.CreateAlbumFromFolder(ctx, name, description, folder)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Album created: %s\n", result.Album.ID)
			fmt.Fprintf(s.out, "Uploaded %s files, %d failed\n", humanize.Comma(int64(result.Uploaded)), len(result.Failed))
			for file, err := range result.Failed {
				fmt.Fprintf(s.out, "  %s: %s\n", file, err)
			}
			return nil
		}),
	}
}

func (app *App) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Rename an album or change its description",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			name, err := s.prompt.optional("New name (empty to keep)", "")
			if err != nil {
				return err
			}
			description, err := s.prompt.optional("New description (empty to keep)", "")
			if err != nil {
				return err
			}
			if err := client.EditAlbum(ctx, id, name, description); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Album %s updated\n", id)
			return nil
		}),
	}
}

func (app *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete an album",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			ok, err := s.prompt.confirm(fmt.Sprintf("Delete album %s?", id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(s.out, "Cancelled")
				return nil
			}
			if err := client.DeleteAlbum(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Album %s deleted\n", id)
			return nil
		}),
	}
}

func (app *App) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Upload a DICOM file into an album",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			path, err := s.prompt.ask("DICOM file")
			if err != nil {
				return err
			}
			if err := client.UploadInstance(ctx, id, path); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s uploaded to album %s\n", path, id)
			return nil
		}),
	}
}

func (app *App) addStudyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-study",
		Short: "Add a study to an album",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			study, err := s.prompt.ask("StudyInstanceUID")
			if err != nil {
				return err
			}
			if err := client.AddStudy(ctx, id, study); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Study %s added to album %s\n", study, id)
			return nil
		}),
	}
}

func (app *App) addSeriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-series",
		Short: "Add a series to an album",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			study, err := s.prompt.ask("StudyInstanceUID")
			if err != nil {
				return err
			}
			series, err := s.prompt.ask("SeriesInstanceUID")
			if err != nil {
				return err
			}
			if err := client.AddSeries(ctx, id, study, series); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Series %s added to album %s\n", series, id)
			return nil
		}),
	}
}

func (app *App) deleteStudyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-study",
		Short: "Remove a study from an album",
		Args:  cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			study, err := s.prompt.ask("StudyInstanceUID")
			if err != nil {
				return err
			}
			if err := client.RemoveStudy(ctx, id, study); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Study %s removed from album %s\n", study, id)
			return nil
		}),
	}
}

func (app *App) linkCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "link",
		Aliases: []string{"create_link"},
		Short:   "Create a read-only share link for an album",
		Args:    cobra.NoArgs,
		RunE: app.albumAction(func(ctx context.Context, s *session, client *album.Client) error {
			id, err := s.prompt.ask("Album ID")
			if err != nil {
				return err
			}
			title, err := s.prompt.optional("Link title", constants.DefaultLinkTitle)
			if err != nil {
				return err
			}
			perms := album.ReadOnly
			if perms.Write, err = s.prompt.confirm("Allow uploads through the link?"); err != nil {
				return err
			}
			days, err := s.prompt.days("Valid for days (empty for the service default)")
			if err != nil {
				return err
			}
			var expiration time.Time
			if days > 0 {
				expiration = time.Now().AddDate(0, 0, days)
			}

			capability, err := client.CreateCapability(ctx, id, title, perms, expiration)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, client.ShareURL(capability))
			return nil
		}),
	}
}
